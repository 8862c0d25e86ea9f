// Package master implements a master/worker execution engine: a fixed set
// of worker goroutines consuming units of work from one shared, unbounded
// queue, shut down by enqueuing one stop marker per worker.
//
// Typical use:
//
//	m, err := master.New(4)
//	...
//	for _, c := range chunks {
//		m.Submit(func() { ... })
//	}
//	m.BroadcastStop()
//	m.JoinAll()
//
// Submit must not be called after BroadcastStop. Doing so is not detected:
// the unit may run, or never run if every worker already saw its marker.
package master

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/qcserestipy/gohpc/pkg/metrics"
	"github.com/qcserestipy/gohpc/pkg/queue"
)

// ErrInvalidWorkers is returned by New when asked for fewer than one worker.
var ErrInvalidWorkers = errors.New("master: worker count must be at least 1")

// State is the lifecycle phase of a Master.
type State int32

const (
	StateCreated State = iota
	StateAccepting
	StateStopping
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAccepting:
		return "accepting"
	case StateStopping:
		return "stopping"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

type Options struct {
	Context context.Context
	Logger  logrus.FieldLogger
	Metrics *metrics.Engine
	Name    string
}

type OptionFunc func(*Options)

func defaultOpts() Options {
	return Options{
		Context: context.Background(),
		Logger:  logrus.StandardLogger(),
		Name:    "master",
	}
}

// WithContext sets the parent context of every worker. Cancelling it
// interrupts all workers that are waiting on the queue.
func WithContext(ctx context.Context) OptionFunc {
	return func(o *Options) { o.Context = ctx }
}

// WithLogger replaces the standard logrus logger.
func WithLogger(l logrus.FieldLogger) OptionFunc {
	return func(o *Options) { o.Logger = l }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Engine) OptionFunc {
	return func(o *Options) { o.Metrics = m }
}

// WithName labels logs and metrics produced by this master.
func WithName(name string) OptionFunc {
	return func(o *Options) { o.Name = name }
}

// Master owns the shared queue and the worker goroutines bound to it.
type Master struct {
	opts    Options
	log     logrus.FieldLogger
	tasks   *queue.Blocking[Unit]
	workers []*Worker
	cancels []context.CancelFunc
	errs    []error
	wg      sync.WaitGroup
	state   atomic.Int32
}

// New creates an empty queue and starts nWorkers workers on it. The workers
// block on the empty queue until Submit is called.
func New(nWorkers int, opts ...OptionFunc) (*Master, error) {
	if nWorkers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, nWorkers)
	}
	o := defaultOpts()
	for _, fn := range opts {
		fn(&o)
	}

	m := &Master{
		opts:    o,
		log:     o.Logger.WithField("engine", o.Name),
		tasks:   queue.New[Unit](),
		workers: make([]*Worker, nWorkers),
		cancels: make([]context.CancelFunc, nWorkers),
		errs:    make([]error, nWorkers),
	}
	m.state.Store(int32(StateCreated))

	m.wg.Add(nWorkers)
	for i := 0; i < nWorkers; i++ {
		w := NewWorker(i, m.tasks, m.log)
		w.metrics = o.Metrics
		w.engine = o.Name
		ctx, cancel := context.WithCancel(o.Context)
		m.workers[i] = w
		m.cancels[i] = cancel

		if o.Metrics != nil {
			o.Metrics.WorkersActive.WithLabelValues(o.Name).Inc()
		}
		go func(i int) {
			defer m.wg.Done()
			defer cancel()
			if o.Metrics != nil {
				defer o.Metrics.WorkersActive.WithLabelValues(o.Name).Dec()
			}
			m.errs[i] = w.Run(ctx)
		}(i)
	}
	m.state.Store(int32(StateAccepting))

	m.log.WithField("workers", nWorkers).Debug("Master started")
	return m, nil
}

// Submit wraps action in a Run unit and appends it to the queue. It never
// blocks.
func (m *Master) Submit(action func()) {
	m.tasks.Put(Run(action))
	if m.opts.Metrics != nil {
		m.opts.Metrics.UnitsSubmitted.WithLabelValues(m.opts.Name).Inc()
	}
}

// BroadcastStop appends exactly one stop marker per worker. Call it once,
// after the last Submit.
func (m *Master) BroadcastStop() {
	for range m.workers {
		m.tasks.Put(Stop)
	}
	m.state.Store(int32(StateStopping))
	m.log.WithField("markers", len(m.workers)).Debug("Stop broadcast")
}

// JoinAll blocks until every worker has exited. There is no timeout: without
// a stop marker per worker it never returns.
func (m *Master) JoinAll() {
	m.state.CompareAndSwap(int32(StateStopping), int32(StateDraining))
	m.wg.Wait()
	m.state.Store(int32(StateTerminated))
	m.log.Debug("All workers joined")
}

// Interrupt cancels worker i. If it is waiting on the queue it exits; a unit
// it is executing runs to completion first. Other workers are unaffected.
func (m *Master) Interrupt(i int) {
	if i < 0 || i >= len(m.cancels) {
		return
	}
	m.cancels[i]()
}

// Err returns the joined exit errors of all workers: context errors of
// interrupted workers and ErrUnitPanicked for every panicking action. It is
// only meaningful after JoinAll.
func (m *Master) Err() error {
	return errors.Join(m.errs...)
}

// Workers returns the number of workers started by New.
func (m *Master) Workers() int { return len(m.workers) }

// Pending returns the number of units still queued.
func (m *Master) Pending() int { return m.tasks.Len() }

// State returns the current lifecycle phase.
func (m *Master) State() State { return State(m.state.Load()) }
