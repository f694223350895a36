package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// HandlerFunc executes one claimed job and returns its result payload.
type HandlerFunc func(ctx context.Context, job *domain.Job) (json.RawMessage, error)

// Worker polls the ledger at a fixed interval, claims queued jobs and
// dispatches them to per-type handlers. Each job is executed at most once;
// a handler failure marks the job failed with the error attached.
type Worker struct {
	ledger     *Ledger
	interval   time.Duration
	jobTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewWorker creates a worker polling at the given interval, bounding each
// job by jobTimeout.
func NewWorker(l *Ledger, interval, jobTimeout time.Duration) *Worker {
	return &Worker{
		ledger:     l,
		interval:   interval,
		jobTimeout: jobTimeout,
		handlers:   make(map[string]HandlerFunc),
	}
}

// Register adds a handler for a job type.
func (w *Worker) Register(jobType string, h HandlerFunc) error {
	if jobType == "" {
		return fmt.Errorf("job type is required")
	}
	if h == nil {
		return fmt.Errorf("handler is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.handlers[jobType]; exists {
		return fmt.Errorf("handler already registered for %s", jobType)
	}
	w.handlers[jobType] = h
	return nil
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims and executes queued jobs until the queue is empty or a
// claim fails. A breaker-open store is a temporary condition; the worker
// just waits for the next tick.
func (w *Worker) drain(ctx context.Context) {
	for {
		job, err := w.ledger.NextQueuedJob(ctx)
		if err != nil {
			var open *domain.CircuitOpenError
			if errors.As(err, &open) {
				log.Printf("WARN: job claim deferred, store unavailable: %v", err)
			} else {
				log.Printf("ERROR: failed to claim job: %v", err)
			}
			return
		}
		if job == nil {
			return
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *domain.Job) {
	w.mu.RLock()
	handler := w.handlers[job.Type]
	w.mu.RUnlock()

	if handler == nil {
		w.settle(ctx, job.ID, nil, fmt.Errorf("no handler registered for job type %q", job.Type))
		return
	}

	jctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	log.Printf("INFO: job %s (%s) started", job.ID, job.Type)
	result, err := handler(jctx, job)
	w.settle(ctx, job.ID, result, err)
}

func (w *Worker) settle(ctx context.Context, id string, result json.RawMessage, err error) {
	if err != nil {
		log.Printf("ERROR: job %s failed: %v", id, err)
		if uerr := w.ledger.UpdateJobStatus(ctx, id, domain.JobStatusFailed, JobUpdate{Error: err.Error()}); uerr != nil {
			log.Printf("ERROR: failed to record job %s failure: %v", id, uerr)
		}
		return
	}
	log.Printf("INFO: job %s completed", id)
	if uerr := w.ledger.UpdateJobStatus(ctx, id, domain.JobStatusCompleted, JobUpdate{Result: result}); uerr != nil {
		log.Printf("ERROR: failed to record job %s completion: %v", id, uerr)
	}
}
