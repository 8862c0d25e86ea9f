package reduce

import (
	"math"
	"sync/atomic"
)

// Accumulator is an add-only total shared by concurrent chunks. Add must be
// safe for concurrent use; Value is read once all chunks have merged.
type Accumulator[T any] interface {
	Add(delta T)
	Value() T
}

// IntAdder is a lock-free integer total.
type IntAdder struct {
	v atomic.Int64
}

func (a *IntAdder) Add(delta int64) { a.v.Add(delta) }

func (a *IntAdder) Value() int64 { return a.v.Load() }

// FloatAdder is a lock-free float64 total. Add retries a compare-and-swap on
// the bit pattern until no other writer got in between.
type FloatAdder struct {
	bits atomic.Uint64
}

func (a *FloatAdder) Add(delta float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (a *FloatAdder) Value() float64 { return math.Float64frombits(a.bits.Load()) }
