// Package queue provides an unbounded, blocking, multi-producer/multi-consumer
// FIFO shared between a master and its workers.
package queue

import (
	"context"
	"sync"

	ring "github.com/eapache/queue"
)

// Blocking is a FIFO that never blocks producers and blocks consumers while
// it is empty. The zero value is not usable; call New.
type Blocking[T any] struct {
	mu    sync.Mutex
	items *ring.Queue
	// ready holds at most one wake-up token. A consumer that removes an item
	// and sees more remaining passes the token on.
	ready chan struct{}
}

// New returns an empty queue.
func New[T any]() *Blocking[T] {
	return &Blocking[T]{
		items: ring.New(),
		ready: make(chan struct{}, 1),
	}
}

// Put appends v. It never blocks.
func (q *Blocking[T]) Put(v T) {
	q.mu.Lock()
	q.items.Add(v)
	q.mu.Unlock()
	q.signal()
}

// Take removes and returns the head of the queue, waiting while the queue is
// empty. It returns ctx.Err() if ctx is done before an item arrives.
func (q *Blocking[T]) Take(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if q.items.Length() > 0 {
			v := q.items.Remove().(T)
			more := q.items.Length() > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return v, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len reports the number of queued items.
func (q *Blocking[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

func (q *Blocking[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
