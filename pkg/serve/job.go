package serve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job records one computation requested through the server.
type Job struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Status    JobStatus     `json:"status"`
	Workers   int           `json:"workers"`
	Submitted time.Time     `json:"submitted"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// JobRegistry keeps every job seen by the server. It is safe for concurrent
// use by request handlers.
type JobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*Job)}
}

// Start registers a pending job of the given kind and returns a copy.
func (r *JobRegistry) Start(kind string, workers int) Job {
	job := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		Workers:   workers,
		Submitted: time.Now(),
	}
	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return *job
}

// Run moves a pending job id to running. It reports false if the job is
// unknown or no longer pending.
func (r *JobRegistry) Run(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || job.Status != StatusPending {
		return false
	}
	job.Status = StatusRunning
	return true
}

// Finish marks job id completed, or failed when err is non-nil.
func (r *JobRegistry) Finish(id string, err error) Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}
	}
	job.Duration = time.Since(job.Submitted)
	job.Status = StatusCompleted
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
	}
	return *job
}

// Get returns a copy of job id.
func (r *JobRegistry) Get(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns all jobs, oldest first.
func (r *JobRegistry) List() []Job {
	r.mu.RLock()
	out := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Submitted.Before(out[j].Submitted) })
	return out
}

// ----------------------------------------------------------------
// HTTP routes
// ----------------------------------------------------------------

// createJobRoute wires up the read-only GET handlers on /jobs.
func createJobRoute(r chi.Router, jobs *JobRegistry) {
	r.Get("/jobs", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, jobs.List())
	})

	r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		if _, err := uuid.Parse(id); err != nil {
			http.Error(w,
				fmt.Sprintf("invalid job ID '%s': %v", id, err),
				http.StatusBadRequest,
			)
			return
		}

		job, ok := jobs.Get(id)
		if !ok {
			http.Error(w,
				fmt.Sprintf("job not found with ID %s", id),
				http.StatusNotFound,
			)
			return
		}
		writeJSON(w, http.StatusOK, job)
	})
}

// writeJSON encodes v before touching w, so an encoding failure still
// produces a 500 instead of a truncated body under status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "encode error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
