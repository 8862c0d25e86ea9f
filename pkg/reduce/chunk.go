// Package reduce implements chunked reduction on top of the master/worker
// engine: an index range is split into contiguous chunks, each chunk becomes
// one unit of work computing a local partial, and partials are merged either
// through a concurrency-safe accumulator or by writing to indices the chunk
// owns exclusively.
package reduce

import (
	"errors"
	"fmt"
)

// ErrChunkSize is returned when a chunk size below 1 is requested.
var ErrChunkSize = errors.New("reduce: chunk size must be at least 1")

// Chunk is the half-open index range [Start, End).
type Chunk struct {
	Start int
	End   int
}

// Len returns the number of indices in c.
func (c Chunk) Len() int { return c.End - c.Start }

func (c Chunk) String() string { return fmt.Sprintf("[%d,%d)", c.Start, c.End) }

// Split partitions [lo, hi) into ceil((hi-lo)/size) contiguous chunks of
// size indices; the final chunk may be shorter. An empty range yields no
// chunks.
func Split(lo, hi, size int) ([]Chunk, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrChunkSize, size)
	}
	if hi <= lo {
		return nil, nil
	}
	n := hi - lo
	chunks := make([]Chunk, 0, (n+size-1)/size)
	for start := lo; start < hi; start += size {
		chunks = append(chunks, Chunk{Start: start, End: min(start+size, hi)})
	}
	return chunks, nil
}

// DefaultSize spreads n indices evenly over workers, never returning less
// than 1.
func DefaultSize(n, workers int) int {
	if workers < 1 {
		workers = 1
	}
	size := (n + workers - 1) / workers
	if size < 1 {
		return 1
	}
	return size
}
