// Package expr turns a JavaScript expression in x, such as "x*(x-1)" or
// "sin(x) + exp(-x*x)", into a Go function usable as an integrand.
//
// Expressions are evaluated by the otto interpreter with Math in scope.
// An otto VM is not safe for concurrent use, so each concurrent caller
// borrows its own copy of the compiled VM from a pool.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/robertkrimen/otto"
)

// ErrEmpty is returned for a blank expression.
var ErrEmpty = errors.New("expr: empty expression")

const fnName = "__integrand"

// Func is a compiled expression of one variable x.
type Func struct {
	src string
	vms sync.Pool

	mu   sync.Mutex // guards copies of base
	base *otto.Otto
}

// Compile parses src and checks that it evaluates at x = 0 without a
// runtime error.
func Compile(src string) (*Func, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrEmpty
	}

	base := otto.New()
	def := fmt.Sprintf("function %s(x) { with (Math) { return (%s); } }", fnName, src)
	if _, err := base.Run(def); err != nil {
		return nil, fmt.Errorf("expr: compile %q: %w", src, err)
	}

	f := &Func{src: src, base: base}
	f.vms.New = func() any {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.base.Copy()
	}

	if _, err := f.Eval(0); err != nil {
		return nil, err
	}
	return f, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Func {
	f, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return f
}

// Eval evaluates the expression at x.
func (f *Func) Eval(x float64) (float64, error) {
	vm := f.vms.Get().(*otto.Otto)
	defer f.vms.Put(vm)

	v, err := vm.Call(fnName, nil, x)
	if err != nil {
		return math.NaN(), fmt.Errorf("expr: evaluate %q at %g: %w", f.src, x, err)
	}
	out, err := v.ToFloat()
	if err != nil {
		return math.NaN(), fmt.Errorf("expr: %q at %g is not a number: %w", f.src, x, err)
	}
	return out, nil
}

// Fn adapts f to a plain function. Evaluation errors yield NaN, which
// propagates into any sum it is part of.
func (f *Func) Fn() func(float64) float64 {
	return func(x float64) float64 {
		v, _ := f.Eval(x)
		return v
	}
}

func (f *Func) String() string { return f.src }
