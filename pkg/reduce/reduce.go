package reduce

import (
	"context"

	"github.com/qcserestipy/gohpc/pkg/master"
)

// Submitter is the part of a master that reductions need.
type Submitter interface {
	Submit(action func())
}

// Scalar submits one unit per chunk. Each unit evaluates kernel over its
// chunk into a local value and merges it with a single acc.Add, so workers
// never contend on acc while iterating.
func Scalar[T any](s Submitter, chunks []Chunk, kernel func(Chunk) T, acc Accumulator[T]) {
	for _, c := range chunks {
		s.Submit(func() {
			acc.Add(kernel(c))
		})
	}
}

// Disjoint submits one unit per chunk for kernels that write their result
// straight into shared output. The caller guarantees that no two chunks
// write the same location; nothing here checks it.
func Disjoint(s Submitter, chunks []Chunk, kernel func(Chunk)) {
	for _, c := range chunks {
		s.Submit(func() {
			kernel(c)
		})
	}
}

// Run starts a master with the given worker count, hands it to submit, then
// broadcasts stop and waits for every worker. When Run returns without
// error every submitted unit has finished.
func Run(ctx context.Context, workers int, submit func(Submitter), opts ...master.OptionFunc) error {
	opts = append([]master.OptionFunc{master.WithContext(ctx)}, opts...)
	m, err := master.New(workers, opts...)
	if err != nil {
		return err
	}
	submit(m)
	m.BroadcastStop()
	m.JoinAll()
	return m.Err()
}
