// Package serve exposes the numeric algorithms over HTTP. Every request runs
// on a fresh master/worker engine and is recorded in a job registry.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	lrl "github.com/chi-middleware/logrus-logger"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/qcserestipy/gohpc/pkg/config"
	"github.com/qcserestipy/gohpc/pkg/metrics"
)

// ErrInvalidRequest marks errors that are the caller's fault.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

type ComputeServer struct {
	NumWorkers int
	MaxWorkers int
	ChunkSize  int
	Router     *chi.Mux
	Jobs       *JobRegistry
	Metrics    *metrics.Engine
	Logger     log.FieldLogger
}

// New builds a server from cfg. A nil registry keeps metrics unregistered
// and serves nothing on the metrics path.
func New(cfg config.Config, registry *prometheus.Registry, logger log.FieldLogger) *ComputeServer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	var em *metrics.Engine
	switch registry {
	case nil:
		em = metrics.New(nil)
	case metrics.DefaultRegistry:
		em = metrics.Default()
	default:
		em = metrics.New(registry)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(lrl.Logger("router", logger))
	r.Use(middleware.Recoverer)

	s := &ComputeServer{
		NumWorkers: cfg.Workers,
		MaxWorkers: cfg.Server.MaxWorkers,
		ChunkSize:  cfg.ChunkSize,
		Router:     r,
		Jobs:       NewJobRegistry(),
		Metrics:    em,
		Logger:     logger,
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if registry != nil {
		r.Handle(cfg.Server.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	createJobRoute(r, s.Jobs)
	createComputeRoutes(s)
	return s
}

// Launch serves s on targetPort until the listener fails.
func Launch(s *ComputeServer, targetPort int) error {
	addr := fmt.Sprintf(":%d", targetPort)
	s.Logger.Infof("▶️  Starting server on %s", addr)
	// ListenAndServe blocks until an error occurs (e.g. port already in use).
	if err := http.ListenAndServe(addr, s.Router); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

var validate = validator.New()

// CreateRoutes registers a JSON POST endpoint at path. The decoded request
// is validated against its struct tags before fn runs; errors wrapping
// ErrInvalidRequest become 400 responses, anything else a 500.
func CreateRoutes[T any, R any](
	r chi.Router,
	path string,
	fn func(context.Context, T) (R, error),
) {
	r.Post(path, func(w http.ResponseWriter, r *http.Request) {
		var req T
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "validation error: "+err.Error(), http.StatusBadRequest)
			return
		}

		res, err := fn(r.Context(), req)
		if err != nil {
			if errors.Is(err, ErrInvalidRequest) {
				http.Error(w, "validation error: "+err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "processing error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}

// track records a job of kind around run and updates the server metrics.
func (s *ComputeServer) track(kind string, workers int, run func() error) (Job, error) {
	job := s.Jobs.Start(kind, workers)
	s.Jobs.Run(job.ID)
	start := time.Now()
	err := run()
	job = s.Jobs.Finish(job.ID, err)

	s.Metrics.ComputationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	s.Metrics.ComputationsTotal.WithLabelValues(kind, string(job.Status)).Inc()

	entry := s.Logger.WithFields(log.Fields{
		"job":      job.ID,
		"kind":     kind,
		"workers":  workers,
		"duration": job.Duration,
	})
	if err != nil {
		entry.WithError(err).Warn("Computation failed")
	} else {
		entry.Info("Computation completed")
	}
	return job, err
}
