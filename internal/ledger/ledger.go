// Package ledger provides the durable, atomically-claimable job queue.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
	"github.com/simik394/osobni-wf-sub002/internal/store"
)

// validTransitions maps a target status to the only status a job may
// transition from. Terminal statuses have no outgoing transitions.
var validTransitions = map[domain.JobStatus]domain.JobStatus{
	domain.JobStatusRunning:   domain.JobStatusQueued,
	domain.JobStatusCompleted: domain.JobStatusRunning,
	domain.JobStatusFailed:    domain.JobStatusRunning,
}

// JobUpdate carries optional fields merged into a job on a transition.
type JobUpdate struct {
	Result json.RawMessage
	Error  string
}

// Ledger manages job creation, atomic claiming and validated state
// transitions on top of the resilient store.
type Ledger struct {
	store store.Store
}

// New creates a Ledger.
func New(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// AddJob mints an 8-character job id and persists the job as queued.
func (l *Ledger) AddJob(ctx context.Context, jobType string, payload, options json.RawMessage) (*domain.Job, error) {
	if jobType == "" {
		return nil, fmt.Errorf("job type is required")
	}
	job := &domain.Job{
		ID:        uuid.New().String()[:8],
		Type:      jobType,
		Status:    domain.JobStatusQueued,
		Payload:   payload,
		Options:   options,
		CreatedAt: time.Now(),
	}
	if err := l.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// NextQueuedJob claims the oldest queued job, transitioning it to running
// atomically. Returns nil when no job is queued. The same job is never
// handed to two concurrent callers; the claim is a single conditional
// update in the store.
func (l *Ledger) NextQueuedJob(ctx context.Context) (*domain.Job, error) {
	return l.store.ClaimNextJob(ctx)
}

// UpdateJobStatus applies a validated transition
// queued→running→{completed|failed}. Setting running stamps startedAt; a
// terminal status stamps completedAt and merges the result or error.
// Self-transitions and skipped states are rejected.
func (l *Ledger) UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus, update JobUpdate) error {
	from, ok := validTransitions[status]
	if !ok {
		return fmt.Errorf("invalid target status %q for job %s", status, id)
	}

	now := time.Now()
	su := store.JobUpdate{Result: update.Result, Error: update.Error}
	if status == domain.JobStatusRunning {
		su.StartedAt = &now
	}
	if domain.IsTerminalJobStatus(status) {
		su.CompletedAt = &now
	}

	applied, err := l.store.UpdateJobStatus(ctx, id, from, status, su)
	if err != nil {
		return err
	}
	if !applied {
		job, err := l.store.GetJob(ctx, id)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job %s not found", id)
		}
		return fmt.Errorf("cannot transition job %s from %s to %s", id, job.Status, status)
	}
	return nil
}

// GetJob retrieves a job by id, nil when not found.
func (l *Ledger) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return l.store.GetJob(ctx, id)
}

// ListJobs is a read-only projection; empty filters match everything.
func (l *Ledger) ListJobs(ctx context.Context, status domain.JobStatus, jobType string, limit int) ([]domain.Job, error) {
	return l.store.ListJobs(ctx, status, jobType, limit)
}
