// Package storetest provides an in-memory Store implementation for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
	"github.com/simik394/osobni-wf-sub002/internal/store"
)

// MemStore implements store.Store with in-process maps. Claim and
// transition operations hold a single mutex, mirroring the conditional
// semantics the graph store gets from single-query updates.
type MemStore struct {
	mu         sync.Mutex
	jobs       map[string]*domain.Job
	executions map[string]*domain.WorkflowExecution
	steps      map[string]*domain.StepExecution

	// Err, when set, is returned by every operation.
	Err error
}

// New creates an empty MemStore.
func New() *MemStore {
	return &MemStore{
		jobs:       make(map[string]*domain.Job),
		executions: make(map[string]*domain.WorkflowExecution),
		steps:      make(map[string]*domain.StepExecution),
	}
}

func (m *MemStore) CreateJob(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	clone := *job
	m.jobs[job.ID] = &clone
	return nil
}

func (m *MemStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	clone := *job
	return &clone, nil
}

func (m *MemStore) ClaimNextJob(ctx context.Context) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var oldest *domain.Job
	for _, job := range m.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil, nil
	}
	now := time.Now()
	oldest.Status = domain.JobStatusRunning
	oldest.StartedAt = &now
	clone := *oldest
	return &clone, nil
}

func (m *MemStore) UpdateJobStatus(ctx context.Context, id string, from, to domain.JobStatus, update store.JobUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	job, ok := m.jobs[id]
	if !ok || job.Status != from {
		return false, nil
	}
	job.Status = to
	if update.StartedAt != nil {
		job.StartedAt = update.StartedAt
	}
	if update.CompletedAt != nil {
		job.CompletedAt = update.CompletedAt
	}
	if update.Result != nil {
		job.Result = update.Result
	}
	if update.Error != "" {
		job.Error = update.Error
	}
	return true, nil
}

func (m *MemStore) ListJobs(ctx context.Context, status domain.JobStatus, jobType string, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var jobs []domain.Job
	for _, job := range m.jobs {
		if status != "" && job.Status != status {
			continue
		}
		if jobType != "" && job.Type != jobType {
			continue
		}
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (m *MemStore) CreateExecution(ctx context.Context, exec *domain.WorkflowExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	clone := *exec
	clone.StepResults = cloneResults(exec.StepResults)
	m.executions[exec.ID] = &clone
	return nil
}

func (m *MemStore) GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	exec, ok := m.executions[id]
	if !ok {
		return nil, nil
	}
	clone := *exec
	clone.StepResults = cloneResults(exec.StepResults)
	return &clone, nil
}

func (m *MemStore) SaveStepResults(ctx context.Context, id string, results map[string]domain.StepResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	exec, ok := m.executions[id]
	if !ok {
		return fmt.Errorf("execution %s not found", id)
	}
	exec.StepResults = cloneResults(results)
	return nil
}

func (m *MemStore) CompleteExecution(ctx context.Context, id string, status domain.ExecutionStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	exec, ok := m.executions[id]
	if !ok {
		return fmt.Errorf("execution %s not found", id)
	}
	now := time.Now()
	exec.Status = status
	exec.Error = errMsg
	exec.CompletedAt = &now
	return nil
}

func (m *MemStore) CreateStepExecution(ctx context.Context, se *domain.StepExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.executions[se.ExecutionID]; !ok {
		return fmt.Errorf("execution %s not found", se.ExecutionID)
	}
	clone := *se
	m.steps[se.ID] = &clone
	return nil
}

func (m *MemStore) CompleteStepExecution(ctx context.Context, id string, status domain.StepStatus, errMsg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	se, ok := m.steps[id]
	if !ok || se.Status != domain.StepStatusRunning {
		return false, nil
	}
	now := time.Now()
	se.Status = status
	se.Error = errMsg
	se.CompletedAt = &now
	return true, nil
}

// StepExecutions returns all recorded step executions for an execution,
// ordered by start time.
func (m *MemStore) StepExecutions(executionID string) []domain.StepExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StepExecution
	for _, se := range m.steps {
		if se.ExecutionID == executionID {
			out = append(out, *se)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func cloneResults(in map[string]domain.StepResult) map[string]domain.StepResult {
	out := make(map[string]domain.StepResult, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
