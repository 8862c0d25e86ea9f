package numeric

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/qcserestipy/gohpc/pkg/reduce"
	"github.com/qcserestipy/gohpc/pkg/workerpool"
)

// Point is a coordinate in the plane.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Region is the box spanned by two opposite corners together with the disk
// of Radius centred in the box. The unit disk in the square from (-1,-1) to
// (1,1) is the usual π setup.
type Region struct {
	P1     Point   `json:"p1" yaml:"p1"`
	P2     Point   `json:"p2" yaml:"p2"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// UnitDisk is the unit disk inside the square [-1,1]×[-1,1].
var UnitDisk = Region{P1: Point{-1, -1}, P2: Point{1, 1}, Radius: 1}

// Validate checks that the corners are finite and span a box of non-zero area.
func (r Region) Validate() error {
	for _, v := range []float64{r.P1.X, r.P1.Y, r.P2.X, r.P2.Y, r.Radius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	if r.P1 == r.P2 {
		return fmt.Errorf("%w: points must not be identical", ErrDegenerateRegion)
	}
	if r.P1.X == r.P2.X || r.P1.Y == r.P2.Y {
		return fmt.Errorf("%w: box has zero area", ErrDegenerateRegion)
	}
	return nil
}

// Center is the midpoint of the two corners.
func (r Region) Center() Point {
	return Point{(r.P1.X + r.P2.X) / 2, (r.P1.Y + r.P2.Y) / 2}
}

// Area is the area of the bounding box.
func (r Region) Area() float64 {
	return math.Abs(r.P2.X-r.P1.X) * math.Abs(r.P2.Y-r.P1.Y)
}

// Estimate is the outcome of a Monte Carlo run.
type Estimate struct {
	Inside  int64 `json:"inside"`
	Samples int   `json:"samples"`
	// Pi is 4 × Inside / Samples, the π estimate for a disk inscribed in
	// its bounding square.
	Pi float64 `json:"pi"`
	// Area is area(box) × Inside / Samples, the estimated area of the disk
	// clipped to the box.
	Area float64 `json:"area"`
}

func newEstimate(r Region, inside int64, samples int) Estimate {
	ratio := float64(inside) / float64(samples)
	return Estimate{
		Inside:  inside,
		Samples: samples,
		Pi:      4 * ratio,
		Area:    r.Area() * ratio,
	}
}

func validateMonteCarlo(r Region, samples int) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if samples < 1 {
		return fmt.Errorf("%w: got %d", ErrSamples, samples)
	}
	return nil
}

// countInside samples c.Len() points uniformly in the box of r and counts
// those within Radius of the centre. The generator is seeded from seed and
// the chunk start, so a given chunk always draws the same points.
func countInside(r Region, c reduce.Chunk, seed uint64) int64 {
	rng := rand.New(rand.NewPCG(seed, uint64(c.Start)))
	center := r.Center()
	r2 := r.Radius * r.Radius
	x0, x1 := math.Min(r.P1.X, r.P2.X), math.Max(r.P1.X, r.P2.X)
	y0, y1 := math.Min(r.P1.Y, r.P2.Y), math.Max(r.P1.Y, r.P2.Y)

	var inside int64
	for i := c.Start; i < c.End; i++ {
		x := x0 + rng.Float64()*(x1-x0)
		y := y0 + rng.Float64()*(y1-y0)
		dx, dy := x-center.X, y-center.Y
		if dx*dx+dy*dy <= r2 {
			inside++
		}
	}
	return inside
}

// EstimateSequential draws every sample on the calling goroutine.
func EstimateSequential(r Region, samples int, seed uint64) (Estimate, error) {
	if err := validateMonteCarlo(r, samples); err != nil {
		return Estimate{}, err
	}
	inside := countInside(r, reduce.Chunk{Start: 0, End: samples}, seed)
	return newEstimate(r, inside, samples), nil
}

// EstimatePool counts each chunk on the fixed worker pool and sums the
// per-chunk counts afterwards.
func EstimatePool(ctx context.Context, r Region, samples int, seed uint64, p Params) (Estimate, error) {
	if err := validateMonteCarlo(r, samples); err != nil {
		return Estimate{}, err
	}
	if err := p.validate(); err != nil {
		return Estimate{}, err
	}
	chunks, err := p.chunks(0, samples)
	if err != nil {
		return Estimate{}, err
	}
	p.logDistribution("montecarlo", samples, chunks)

	pool := workerpool.New[reduce.Chunk, int64](
		workerpool.WithWorkers(p.workers()),
		workerpool.WithLogger(p.logger()),
	)
	partials, err := pool.Run(ctx, chunks, func(_ context.Context, c reduce.Chunk) int64 {
		return countInside(r, c, seed)
	})
	if err != nil {
		return Estimate{}, err
	}

	var inside int64
	for _, v := range partials {
		inside += v
	}
	return newEstimate(r, inside, samples), nil
}

// EstimateMW counts each chunk as one unit of work on the master/worker
// engine, merging local counts through an atomic adder.
func EstimateMW(ctx context.Context, r Region, samples int, seed uint64, p Params) (Estimate, error) {
	if err := validateMonteCarlo(r, samples); err != nil {
		return Estimate{}, err
	}
	if err := p.validate(); err != nil {
		return Estimate{}, err
	}
	chunks, err := p.chunks(0, samples)
	if err != nil {
		return Estimate{}, err
	}
	p.logDistribution("montecarlo", samples, chunks)

	var inside reduce.IntAdder
	err = reduce.Run(ctx, p.workers(), func(s reduce.Submitter) {
		reduce.Scalar[int64](s, chunks, func(c reduce.Chunk) int64 {
			return countInside(r, c, seed)
		}, &inside)
	}, p.masterOpts("montecarlo")...)
	if err != nil {
		return Estimate{}, err
	}
	return newEstimate(r, inside.Value(), samples), nil
}
