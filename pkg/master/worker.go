package master

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qcserestipy/gohpc/pkg/metrics"
	"github.com/qcserestipy/gohpc/pkg/queue"
)

// ErrUnitPanicked is reported by a worker that recovered from a panicking
// action. The worker keeps consuming units after the panic.
var ErrUnitPanicked = errors.New("master: unit of work panicked")

// Worker pulls units from a shared queue and executes them on its own
// goroutine until it sees a stop marker or its context is cancelled.
type Worker struct {
	ID      int
	tasks   *queue.Blocking[Unit]
	log     logrus.FieldLogger
	metrics *metrics.Engine
	engine  string
}

// NewWorker binds a worker to the shared queue q.
func NewWorker(id int, q *queue.Blocking[Unit], log logrus.FieldLogger) *Worker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Worker{ID: id, tasks: q, log: log.WithField("worker", id)}
}

// Run blocks until the worker dequeues a stop marker or until ctx is
// cancelled while waiting. It returns ctx.Err() in the latter case, joined
// with one ErrUnitPanicked per action that panicked along the way.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Debug("Worker started")
	var panics []error
	for {
		u, err := w.tasks.Take(ctx)
		if err != nil {
			w.log.WithError(err).Info("Worker interrupted while waiting")
			if w.metrics != nil {
				w.metrics.Interruptions.WithLabelValues(w.engine).Inc()
			}
			return errors.Join(append(panics, err)...)
		}

		if !u.runnable() {
			w.log.WithField("status", u.Status()).Debug("Worker stopped")
			return errors.Join(panics...)
		}

		if err := w.execute(u.action); err != nil {
			panics = append(panics, err)
		}
	}
}

// execute runs one action. A panicking action is logged, counted and
// reported as ErrUnitPanicked; the worker carries on with the next unit.
func (w *Worker) execute(action func()) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", fmt.Sprint(r)).Error("Unit of work panicked")
			if w.metrics != nil {
				w.metrics.UnitsPanicked.WithLabelValues(w.engine).Inc()
			}
			err = fmt.Errorf("%w: worker %d: %v", ErrUnitPanicked, w.ID, r)
		}
		if w.metrics != nil {
			w.metrics.UnitsExecuted.WithLabelValues(w.engine).Inc()
			w.metrics.UnitDuration.WithLabelValues(w.engine).Observe(time.Since(start).Seconds())
		}
	}()
	action()
	return nil
}
