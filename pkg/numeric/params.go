// Package numeric holds the three client algorithms of the toolkit: Monte
// Carlo area estimation, dense matrix multiplication and the composite
// trapezoid rule. Each comes in a sequential form, a form running on the
// fixed worker pool, and a form running on the master/worker engine.
//
// All inputs are validated before any goroutine is started.
package numeric

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/qcserestipy/gohpc/pkg/master"
	"github.com/qcserestipy/gohpc/pkg/metrics"
	"github.com/qcserestipy/gohpc/pkg/reduce"
)

var (
	ErrEmptyMatrix       = errors.New("numeric: matrix has no rows or columns")
	ErrNotRectangular    = errors.New("numeric: matrix rows have different lengths")
	ErrDimensionMismatch = errors.New("numeric: invalid matrix dimensions for multiplication")
	ErrBounds            = errors.New("numeric: lower bound must be less than upper bound")
	ErrResolution        = errors.New("numeric: resolution must be positive")
	ErrDegenerateRegion  = errors.New("numeric: bounding points must span a non-empty region")
	ErrNonFinite         = errors.New("numeric: coordinates must be finite numbers")
	ErrSamples           = errors.New("numeric: sample count must be at least 1")
	ErrWorkers           = errors.New("numeric: worker count must be at least 1")
	ErrChunkSize         = errors.New("numeric: chunk size must not be negative")
)

// Params controls how a parallel computation is split up.
type Params struct {
	// Workers is the number of worker goroutines. Zero means runtime.NumCPU().
	Workers int
	// ChunkSize is the number of indices per unit of work. Zero spreads the
	// range evenly over the workers.
	ChunkSize int

	Logger  logrus.FieldLogger
	Metrics *metrics.Engine
}

func (p Params) validate() error {
	if p.Workers < 0 {
		return fmt.Errorf("%w: got %d", ErrWorkers, p.Workers)
	}
	if p.ChunkSize < 0 {
		return fmt.Errorf("%w: got %d", ErrChunkSize, p.ChunkSize)
	}
	return nil
}

func (p Params) workers() int {
	if p.Workers == 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

func (p Params) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

// chunks splits [lo, hi) according to p.
func (p Params) chunks(lo, hi int) ([]reduce.Chunk, error) {
	size := p.ChunkSize
	if size == 0 {
		size = reduce.DefaultSize(hi-lo, p.workers())
	}
	return reduce.Split(lo, hi, size)
}

// masterOpts returns the engine options for a computation named name.
func (p Params) masterOpts(name string) []master.OptionFunc {
	opts := []master.OptionFunc{
		master.WithLogger(p.logger()),
		master.WithName(name),
	}
	if p.Metrics != nil {
		opts = append(opts, master.WithMetrics(p.Metrics))
	}
	return opts
}

func (p Params) logDistribution(name string, n int, chunks []reduce.Chunk) {
	size := 0
	if len(chunks) > 0 {
		size = chunks[0].Len()
	}
	p.logger().WithFields(logrus.Fields{
		"algorithm":  name,
		"workers":    p.workers(),
		"range":      n,
		"chunks":     len(chunks),
		"chunk_size": size,
	}).Debug("Work distribution prepared")
}
