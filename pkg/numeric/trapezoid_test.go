package numeric

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qcserestipy/gohpc/pkg/expr"
)

func parabola(x float64) float64 { return x * (x - 1) }

func TestCheckTrapezoid(t *testing.T) {
	require.NoError(t, CheckTrapezoid(0, 1, 0.1))
	require.ErrorIs(t, CheckTrapezoid(1, 0, 0.1), ErrBounds)
	require.ErrorIs(t, CheckTrapezoid(1, 1, 0.1), ErrBounds)
	require.ErrorIs(t, CheckTrapezoid(0, 1, 0), ErrResolution)
	require.ErrorIs(t, CheckTrapezoid(0, 1, -1), ErrResolution)
	require.ErrorIs(t, CheckTrapezoid(math.NaN(), 1, 0.1), ErrBounds)
}

func TestCheckTrapezoidStepCount(t *testing.T) {
	tests := []struct {
		name    string
		a, b, h float64
		want    error
	}{
		{"infinite lower", math.Inf(-1), 1, 0.1, ErrBounds},
		{"infinite upper", 0, math.Inf(1), 0.1, ErrBounds},
		{"infinite step", 0, 1, math.Inf(1), ErrResolution},
		{"NaN step", 0, 1, math.NaN(), ErrResolution},
		{"too many steps", 0, 1e30, 1, ErrResolution},
		{"width overflows", -1e308, 1e308, 1, ErrResolution},
		{"tiny step", 0, 1, 1e-320, ErrResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, CheckTrapezoid(tt.a, tt.b, tt.h), tt.want)
		})
	}
}

func TestIntegrateRejectsOverflowingStepCount(t *testing.T) {
	one := func(float64) float64 { return 1 }
	ctx := context.Background()

	_, err := IntegrateMW(ctx, one, 0, 1e30, 1, Params{Workers: 2})
	require.ErrorIs(t, err, ErrResolution)
	_, err = IntegratePool(ctx, one, 0, 1e30, 1, Params{Workers: 2})
	require.ErrorIs(t, err, ErrResolution)
	_, err = IntegrateSequential(one, -1e308, 1e308, 1)
	require.ErrorIs(t, err, ErrResolution)
}

func TestIntegrateRejectsBeforeDispatch(t *testing.T) {
	ctx := context.Background()
	_, err := IntegrateSequential(parabola, 1, 1, 0.1)
	require.ErrorIs(t, err, ErrBounds)
	_, err = IntegratePool(ctx, parabola, 0, 1, 0, Params{Workers: 2})
	require.ErrorIs(t, err, ErrResolution)
	_, err = IntegrateMW(ctx, parabola, 0, 1, 0, Params{Workers: 2})
	require.ErrorIs(t, err, ErrResolution)
}

func TestIntegrateKnownValue(t *testing.T) {
	const h = 1e-6
	ctx := context.Background()
	p := Params{Workers: 4, ChunkSize: 1000}

	seq, err := IntegrateSequential(parabola, 0, 1, h)
	require.NoError(t, err)
	require.InDelta(t, -1.0/6.0, seq, 1e-5)

	mw, err := IntegrateMW(ctx, parabola, 0, 1, h, p)
	require.NoError(t, err)
	require.InDelta(t, -1.0/6.0, mw, 1e-5)

	pooled, err := IntegratePool(ctx, parabola, 0, 1, h, p)
	require.NoError(t, err)
	require.InDelta(t, -1.0/6.0, pooled, 1e-5)
}

func TestIntegrateSafeMatchesSequential(t *testing.T) {
	const (
		a, b = 0.0, 2.0
		h    = 1e-3
	)
	ctx := context.Background()
	n := steps(a, b, h)
	seq, err := IntegrateSequential(math.Sin, a, b, h)
	require.NoError(t, err)

	for _, chunk := range []int{1, 2, 3, 17, 100, n / 2, n - 1, n, 2 * n} {
		for _, threads := range []int{1, 4, 8} {
			p := Params{Workers: threads, ChunkSize: chunk}

			mw, err := IntegrateMW(ctx, math.Sin, a, b, h, p)
			require.NoError(t, err)
			require.InDeltaf(t, seq, mw, 1e-6, "master/worker chunk=%d threads=%d", chunk, threads)

			pooled, err := IntegratePool(ctx, math.Sin, a, b, h, p)
			require.NoError(t, err)
			require.InDeltaf(t, seq, pooled, 1e-6, "pool chunk=%d threads=%d", chunk, threads)
		}
	}
}

func TestIntegrateCoarseStep(t *testing.T) {
	// h larger than b-a leaves no interior samples.
	got, err := IntegrateMW(context.Background(), parabola, 0, 1, 2, Params{Workers: 2})
	require.NoError(t, err)
	require.Equal(t, 2*0.5*(parabola(0)+parabola(1)), got)
}

func TestIntegrateCompiledExpression(t *testing.T) {
	f := expr.MustCompile("x*(x-1)")
	got, err := IntegrateMW(context.Background(), f.Fn(), 0, 1, 1e-4, Params{Workers: 4})
	require.NoError(t, err)
	require.InDelta(t, -1.0/6.0, got, 1e-6)
}
