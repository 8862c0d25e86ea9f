package numeric

import (
	"context"
	"fmt"
	"math"

	"github.com/qcserestipy/gohpc/pkg/reduce"
	"github.com/qcserestipy/gohpc/pkg/workerpool"
)

// Integrand is a pure function of one variable. It is called concurrently.
type Integrand func(float64) float64

// CheckTrapezoid validates the bounds and resolution of an integration.
// The step count (b-a)/h must also be finite and fit in an int.
func CheckTrapezoid(a, b, h float64) error {
	if math.IsInf(a, 0) || math.IsInf(b, 0) || !(a < b) {
		return fmt.Errorf("%w: a=%g b=%g", ErrBounds, a, b)
	}
	if math.IsInf(h, 0) || !(h > 0) {
		return fmt.Errorf("%w: h=%g", ErrResolution, h)
	}
	if q := (b - a) / h; math.IsInf(q, 0) || q >= float64(math.MaxInt) {
		return fmt.Errorf("%w: h=%g gives %g steps over [%g,%g]", ErrResolution, h, q, a, b)
	}
	return nil
}

// steps returns n = floor((b-a)/h); the interior sample indices are [1, n).
func steps(a, b, h float64) int {
	return int((b - a) / h)
}

func partialSum(f Integrand, a, h float64, c reduce.Chunk) float64 {
	var local float64
	for i := c.Start; i < c.End; i++ {
		local += f(a + float64(i)*h)
	}
	return local
}

func trapezoid(f Integrand, a, b, h, interior float64) float64 {
	return h * (0.5*(f(a)+f(b)) + interior)
}

// IntegrateSequential applies the composite trapezoid rule with step h on
// the calling goroutine.
func IntegrateSequential(f Integrand, a, b, h float64) (float64, error) {
	if err := CheckTrapezoid(a, b, h); err != nil {
		return 0, err
	}
	n := steps(a, b, h)
	sum := 0.0
	if n > 1 {
		sum = partialSum(f, a, h, reduce.Chunk{Start: 1, End: n})
	}
	return trapezoid(f, a, b, h, sum), nil
}

// IntegratePool sums chunks of interior samples on the fixed worker pool.
func IntegratePool(ctx context.Context, f Integrand, a, b, h float64, p Params) (float64, error) {
	if err := CheckTrapezoid(a, b, h); err != nil {
		return 0, err
	}
	if err := p.validate(); err != nil {
		return 0, err
	}
	n := steps(a, b, h)
	chunks, err := p.chunks(1, n)
	if err != nil {
		return 0, err
	}
	p.logDistribution("trapezoid", n, chunks)

	pool := workerpool.New[reduce.Chunk, float64](
		workerpool.WithWorkers(p.workers()),
		workerpool.WithLogger(p.logger()),
	)
	partials, err := pool.Run(ctx, chunks, func(_ context.Context, c reduce.Chunk) float64 {
		return partialSum(f, a, h, c)
	})
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for _, v := range partials {
		sum += v
	}
	return trapezoid(f, a, b, h, sum), nil
}

// IntegrateMW sums chunks of interior samples as units of work on the
// master/worker engine. Each unit adds its local sum to a shared
// FloatAdder exactly once.
func IntegrateMW(ctx context.Context, f Integrand, a, b, h float64, p Params) (float64, error) {
	if err := CheckTrapezoid(a, b, h); err != nil {
		return 0, err
	}
	if err := p.validate(); err != nil {
		return 0, err
	}
	n := steps(a, b, h)
	chunks, err := p.chunks(1, n)
	if err != nil {
		return 0, err
	}
	p.logDistribution("trapezoid", n, chunks)

	var sum reduce.FloatAdder
	err = reduce.Run(ctx, p.workers(), func(s reduce.Submitter) {
		reduce.Scalar[float64](s, chunks, func(c reduce.Chunk) float64 {
			return partialSum(f, a, h, c)
		}, &sum)
	}, p.masterOpts("trapezoid")...)
	if err != nil {
		return 0, err
	}
	return trapezoid(f, a, b, h, sum.Value()), nil
}
