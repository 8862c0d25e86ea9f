// Package workerpool provides a fixed-size WorkerPoolExecutor that runs a
// function over a slice of inputs, one goroutine per worker, and collects
// the results in input order. It is the plain fixed-pool alternative to the
// master/worker engine in package master.
package workerpool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoWorkers is returned when the pool was configured with fewer than one
// worker.
var ErrNoWorkers = errors.New("workerpool: at least one worker is required")

type PoolOptions struct {
	NumWorkers int
	Logger     logrus.FieldLogger
}

type PoolOptionFunc func(*PoolOptions)

func defaultOpts() PoolOptions {
	return PoolOptions{
		NumWorkers: runtime.NumCPU(),
		Logger:     logrus.StandardLogger(),
	}
}

// WithWorkers allows customization of the number of concurrent workers.
func WithWorkers(num int) PoolOptionFunc {
	return func(opts *PoolOptions) {
		opts.NumWorkers = num
	}
}

// WithLogger replaces the standard logrus logger.
func WithLogger(l logrus.FieldLogger) PoolOptionFunc {
	return func(opts *PoolOptions) {
		opts.Logger = l
	}
}

// WorkerPoolExecutor manages a fixed pool of goroutines.
// T is the input type, R is the output type.
type WorkerPoolExecutor[T any, R any] struct {
	PoolOptions
}

// New creates a new WorkerPoolExecutor with optional configuration.
func New[T any, R any](opts ...PoolOptionFunc) *WorkerPoolExecutor[T, R] {
	o := defaultOpts()
	for _, fn := range opts {
		fn(&o)
	}
	return &WorkerPoolExecutor[T, R]{PoolOptions: o}
}

// Run dispatches each input through fn on up to NumWorkers goroutines and
// returns the outputs in input order. If ctx is cancelled before every
// input has been processed, Run returns ctx.Err() and no results.
func (w *WorkerPoolExecutor[T, R]) Run(ctx context.Context, inputs []T, fn func(ctx context.Context, t T) R) ([]R, error) {
	outputs := make([]R, len(inputs))
	err := w.dispatch(ctx, len(inputs), func(ctx context.Context, i int) {
		// Each index is owned by exactly one worker.
		outputs[i] = fn(ctx, inputs[i])
	})
	if err != nil {
		return nil, err
	}
	return outputs, nil
}

// ForEach runs fn on every input for its side effects. fn must only write
// state owned by its input.
func (w *WorkerPoolExecutor[T, R]) ForEach(ctx context.Context, inputs []T, fn func(ctx context.Context, t T)) error {
	return w.dispatch(ctx, len(inputs), func(ctx context.Context, i int) {
		fn(ctx, inputs[i])
	})
}

// dispatch feeds the indices [0, n) to the workers over an unbuffered
// channel and waits for all of them to finish.
func (w *WorkerPoolExecutor[T, R]) dispatch(ctx context.Context, n int, do func(ctx context.Context, i int)) error {
	if w.NumWorkers < 1 {
		return ErrNoWorkers
	}
	log := w.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	start := time.Now()
	indices := make(chan int)

	var wg sync.WaitGroup
	wg.Add(w.NumWorkers)
	for id := 0; id < w.NumWorkers; id++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				// Skip the heavy work once cancelled, but keep draining.
				if ctx.Err() != nil {
					continue
				}
				do(ctx, i)
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()

	wg.Wait()
	if err := ctx.Err(); err != nil {
		log.WithError(err).Warn("Worker pool cancelled")
		return err
	}

	log.WithFields(logrus.Fields{
		"workers":  w.NumWorkers,
		"tasks":    n,
		"duration": time.Since(start),
	}).Debug("Worker pool drained")
	return nil
}
