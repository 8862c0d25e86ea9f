// Package metrics holds the Prometheus collectors exported by the
// master/worker engine and the HTTP server.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the registry served on /metrics.
	DefaultRegistry = prometheus.NewRegistry()

	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Engine groups the collectors updated by masters and workers. Every series
// is labelled with the engine name given to the master.
type Engine struct {
	UnitsSubmitted *prometheus.CounterVec
	UnitsExecuted  *prometheus.CounterVec
	UnitsPanicked  *prometheus.CounterVec
	UnitDuration   *prometheus.HistogramVec
	WorkersActive  *prometheus.GaugeVec
	Interruptions  *prometheus.CounterVec

	ComputationsTotal   *prometheus.CounterVec
	ComputationDuration *prometheus.HistogramVec
}

// Default returns the process-wide Engine registered on DefaultRegistry.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New(DefaultRegistry)
	})
	return defaultEngine
}

// New registers a fresh set of collectors on registerer. A nil registerer
// yields unregistered collectors, which is what tests want.
func New(registerer prometheus.Registerer) *Engine {
	f := promauto.With(registerer)
	return &Engine{
		UnitsSubmitted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gohpc_units_submitted_total",
				Help: "Units of work appended to the shared queue",
			},
			[]string{"engine"},
		),
		UnitsExecuted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gohpc_units_executed_total",
				Help: "Units of work executed by a worker",
			},
			[]string{"engine"},
		),
		UnitsPanicked: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gohpc_units_panicked_total",
				Help: "Units of work whose action panicked",
			},
			[]string{"engine"},
		),
		UnitDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gohpc_unit_duration_seconds",
				Help:    "Time spent executing a single unit of work",
				Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8), // 1µs to 10s
			},
			[]string{"engine"},
		),
		WorkersActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gohpc_workers_active",
				Help: "Worker goroutines currently running",
			},
			[]string{"engine"},
		),
		Interruptions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gohpc_worker_interruptions_total",
				Help: "Workers that exited because their context was cancelled",
			},
			[]string{"engine"},
		),
		ComputationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gohpc_computations_total",
				Help: "Computations requested through the HTTP server",
			},
			[]string{"kind", "status"},
		),
		ComputationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gohpc_computation_duration_seconds",
				Help:    "Wall time of a computation requested through the HTTP server",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}
