package serve

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/qcserestipy/gohpc/pkg/expr"
	"github.com/qcserestipy/gohpc/pkg/numeric"
)

type MonteCarloRequest struct {
	Samples   int             `json:"samples" validate:"gte=1"`
	Seed      uint64          `json:"seed"`
	Region    *numeric.Region `json:"region,omitempty"`
	Workers   int             `json:"workers" validate:"gte=0"`
	ChunkSize int             `json:"chunk_size" validate:"gte=0"`
}

type MonteCarloResponse struct {
	Job      string           `json:"job"`
	Estimate numeric.Estimate `json:"estimate"`
}

type MatrixRequest struct {
	A         numeric.Matrix `json:"a" validate:"required"`
	B         numeric.Matrix `json:"b" validate:"required"`
	Workers   int            `json:"workers" validate:"gte=0"`
	ChunkSize int            `json:"chunk_size" validate:"gte=0"`
}

type MatrixResponse struct {
	Job    string         `json:"job"`
	Result numeric.Matrix `json:"result"`
}

type IntegrateRequest struct {
	Expr      string  `json:"expr" validate:"required"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	H         float64 `json:"h"`
	Workers   int     `json:"workers" validate:"gte=0"`
	ChunkSize int     `json:"chunk_size" validate:"gte=0"`
}

type IntegrateResponse struct {
	Job   string  `json:"job"`
	Value float64 `json:"value"`
}

var validationErrors = []error{
	numeric.ErrEmptyMatrix,
	numeric.ErrNotRectangular,
	numeric.ErrDimensionMismatch,
	numeric.ErrBounds,
	numeric.ErrResolution,
	numeric.ErrDegenerateRegion,
	numeric.ErrNonFinite,
	numeric.ErrSamples,
	numeric.ErrWorkers,
	numeric.ErrChunkSize,
}

// classify marks numeric precondition failures as caller errors.
func classify(err error) error {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return invalid(err)
		}
	}
	return err
}

// params merges per-request overrides with the server defaults. A request
// may not ask for more than MaxWorkers workers.
func (s *ComputeServer) params(workers, chunkSize int) (numeric.Params, error) {
	if s.MaxWorkers > 0 && workers > s.MaxWorkers {
		return numeric.Params{}, invalid(fmt.Errorf("requested %d workers, limit is %d",
			workers, s.MaxWorkers))
	}
	p := numeric.Params{
		Workers:   s.NumWorkers,
		ChunkSize: s.ChunkSize,
		Logger:    s.Logger,
		Metrics:   s.Metrics,
	}
	if workers > 0 {
		p.Workers = workers
	}
	if chunkSize > 0 {
		p.ChunkSize = chunkSize
	}
	return p, nil
}

func createComputeRoutes(s *ComputeServer) {
	CreateRoutes(s.Router, "/montecarlo", func(ctx context.Context, req MonteCarloRequest) (MonteCarloResponse, error) {
		region := numeric.UnitDisk
		if req.Region != nil {
			region = *req.Region
		}
		p, err := s.params(req.Workers, req.ChunkSize)
		if err != nil {
			return MonteCarloResponse{}, err
		}

		var est numeric.Estimate
		job, err := s.track("montecarlo", p.Workers, func() (err error) {
			est, err = numeric.EstimateMW(ctx, region, req.Samples, req.Seed, p)
			return err
		})
		if err != nil {
			return MonteCarloResponse{}, classify(err)
		}
		return MonteCarloResponse{Job: job.ID, Estimate: est}, nil
	})

	CreateRoutes(s.Router, "/matrix", func(ctx context.Context, req MatrixRequest) (MatrixResponse, error) {
		p, err := s.params(req.Workers, req.ChunkSize)
		if err != nil {
			return MatrixResponse{}, err
		}

		var out numeric.Matrix
		job, err := s.track("matrix", p.Workers, func() (err error) {
			out, err = numeric.MultiplyMW(ctx, req.A, req.B, p)
			return err
		})
		if err != nil {
			return MatrixResponse{}, classify(err)
		}
		return MatrixResponse{Job: job.ID, Result: out}, nil
	})

	CreateRoutes(s.Router, "/integrate", func(ctx context.Context, req IntegrateRequest) (IntegrateResponse, error) {
		f, err := expr.Compile(req.Expr)
		if err != nil {
			return IntegrateResponse{}, invalid(err)
		}
		p, err := s.params(req.Workers, req.ChunkSize)
		if err != nil {
			return IntegrateResponse{}, err
		}

		var value float64
		job, err := s.track("integrate", p.Workers, func() (err error) {
			value, err = numeric.IntegrateMW(ctx, f.Fn(), req.A, req.B, req.H, p)
			if err == nil && (math.IsNaN(value) || math.IsInf(value, 0)) {
				err = invalid(fmt.Errorf("integrand %q is not finite over [%g, %g]: got %g",
					f.String(), req.A, req.B, value))
			}
			return err
		})
		if err != nil {
			return IntegrateResponse{}, classify(err)
		}
		return IntegrateResponse{Job: job.ID, Value: value}, nil
	})
}
