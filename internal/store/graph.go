package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// JobUpdate carries the fields merged into a job on a status transition.
type JobUpdate struct {
	StartedAt   *time.Time
	CompletedAt *time.Time
	Result      json.RawMessage
	Error       string
}

// Store is the typed persistence interface for jobs, workflow executions
// and step executions.
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ClaimNextJob(ctx context.Context) (*domain.Job, error)
	UpdateJobStatus(ctx context.Context, id string, from, to domain.JobStatus, update JobUpdate) (bool, error)
	ListJobs(ctx context.Context, status domain.JobStatus, jobType string, limit int) ([]domain.Job, error)

	CreateExecution(ctx context.Context, exec *domain.WorkflowExecution) error
	GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error)
	SaveStepResults(ctx context.Context, id string, results map[string]domain.StepResult) error
	CompleteExecution(ctx context.Context, id string, status domain.ExecutionStatus, errMsg string) error

	CreateStepExecution(ctx context.Context, se *domain.StepExecution) error
	CompleteStepExecution(ctx context.Context, id string, status domain.StepStatus, errMsg string) (bool, error)
}

// GraphStore implements Store with Cypher queries issued through a
// ResilientStore. This is the only place queries against the graph live;
// claim and transition updates are expressed as single conditional
// queries so correctness never depends on client-side locking.
type GraphStore struct {
	store *ResilientStore
}

// NewGraphStore creates a GraphStore over a resilient store.
func NewGraphStore(store *ResilientStore) *GraphStore {
	return &GraphStore{store: store}
}

const jobReturn = `RETURN j.id AS id, j.type AS type, j.status AS status,
	j.payload AS payload, j.options AS options, j.result AS result, j.error AS error,
	j.createdAt AS createdAt, j.startedAt AS startedAt, j.completedAt AS completedAt`

// CreateJob persists a new job node.
func (g *GraphStore) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := g.store.Execute(ctx,
		`CREATE (j:Job {id: $id, type: $type, status: $status, payload: $payload,
			options: $options, createdAt: $createdAt})`,
		map[string]any{
			"id":        job.ID,
			"type":      job.Type,
			"status":    string(job.Status),
			"payload":   rawString(job.Payload),
			"options":   rawString(job.Options),
			"createdAt": job.CreatedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by id, nil when not found.
func (g *GraphStore) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	rows, err := g.store.Execute(ctx, `MATCH (j:Job {id: $id}) `+jobReturn, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return scanJob(rows[0])
}

// ClaimNextJob atomically transitions the oldest queued job to running and
// returns it, nil when no job is queued. Matched predicates are not
// re-evaluated after a lock wait under read-committed isolation, so the
// query takes the write lock first and re-checks the status before the
// transition; the loser of a race matches zero rows instead of
// double-claiming.
func (g *GraphStore) ClaimNextJob(ctx context.Context) (*domain.Job, error) {
	rows, err := g.store.Execute(ctx,
		`MATCH (j:Job {status: $queued})
		 WITH j ORDER BY j.createdAt ASC LIMIT 1
		 SET j._lock = true
		 WITH j
		 WHERE j.status = $queued
		 SET j.status = $running, j.startedAt = $now `+jobReturn,
		map[string]any{
			"queued":  string(domain.JobStatusQueued),
			"running": string(domain.JobStatusRunning),
			"now":     time.Now().UnixMilli(),
		})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return scanJob(rows[0])
}

// UpdateJobStatus transitions a job from one status to another in a single
// conditional query. It reports false when the job was not in the expected
// source status (or does not exist).
func (g *GraphStore) UpdateJobStatus(ctx context.Context, id string, from, to domain.JobStatus, update JobUpdate) (bool, error) {
	fields := map[string]any{"status": string(to)}
	if update.StartedAt != nil {
		fields["startedAt"] = update.StartedAt.UnixMilli()
	}
	if update.CompletedAt != nil {
		fields["completedAt"] = update.CompletedAt.UnixMilli()
	}
	if update.Result != nil {
		fields["result"] = string(update.Result)
	}
	if update.Error != "" {
		fields["error"] = update.Error
	}

	rows, err := g.store.Execute(ctx,
		`MATCH (j:Job {id: $id})
		 SET j._lock = true
		 WITH j
		 WHERE j.status = $from
		 SET j += $fields
		 RETURN j.id AS id`,
		map[string]any{"id": id, "from": string(from), "fields": fields})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// ListJobs is a read-only projection over jobs; empty status or type
// match everything.
func (g *GraphStore) ListJobs(ctx context.Context, status domain.JobStatus, jobType string, limit int) ([]domain.Job, error) {
	query := `MATCH (j:Job)
		 WHERE ($status = '' OR j.status = $status) AND ($type = '' OR j.type = $type)
		 WITH j ORDER BY j.createdAt ASC LIMIT $limit ` + jobReturn
	if limit <= 0 {
		limit = 100
	}
	rows, err := g.store.Execute(ctx, query, map[string]any{
		"status": string(status),
		"type":   jobType,
		"limit":  limit,
	})
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.Job, 0, len(rows))
	for _, row := range rows {
		job, err := scanJob(row)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// CreateExecution persists a new workflow execution node.
func (g *GraphStore) CreateExecution(ctx context.Context, exec *domain.WorkflowExecution) error {
	inputs, err := json.Marshal(exec.Inputs)
	if err != nil {
		return fmt.Errorf("failed to marshal inputs: %w", err)
	}
	results, err := json.Marshal(exec.StepResults)
	if err != nil {
		return fmt.Errorf("failed to marshal step results: %w", err)
	}
	_, err = g.store.Execute(ctx,
		`CREATE (e:WorkflowExecution {id: $id, workflowName: $workflowName, status: $status,
			inputs: $inputs, stepResults: $stepResults, startedAt: $startedAt})`,
		map[string]any{
			"id":           exec.ID,
			"workflowName": exec.WorkflowName,
			"status":       string(exec.Status),
			"inputs":       string(inputs),
			"stepResults":  string(results),
			"startedAt":    exec.StartedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by id, nil when not found.
func (g *GraphStore) GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error) {
	rows, err := g.store.Execute(ctx,
		`MATCH (e:WorkflowExecution {id: $id})
		 RETURN e.id AS id, e.workflowName AS workflowName, e.status AS status,
			e.inputs AS inputs, e.stepResults AS stepResults, e.error AS error,
			e.startedAt AS startedAt, e.completedAt AS completedAt`,
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return scanExecution(rows[0])
}

// SaveStepResults replaces the persisted step result snapshot of an
// execution. The engine only ever adds result keys, never rewrites one.
func (g *GraphStore) SaveStepResults(ctx context.Context, id string, results map[string]domain.StepResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal step results: %w", err)
	}
	_, err = g.store.Execute(ctx,
		`MATCH (e:WorkflowExecution {id: $id}) SET e.stepResults = $stepResults`,
		map[string]any{"id": id, "stepResults": string(data)})
	return err
}

// CompleteExecution marks an execution terminal.
func (g *GraphStore) CompleteExecution(ctx context.Context, id string, status domain.ExecutionStatus, errMsg string) error {
	_, err := g.store.Execute(ctx,
		`MATCH (e:WorkflowExecution {id: $id})
		 SET e.status = $status, e.completedAt = $now, e.error = $error`,
		map[string]any{
			"id":     id,
			"status": string(status),
			"now":    time.Now().UnixMilli(),
			"error":  errMsg,
		})
	return err
}

// CreateStepExecution records a step transition to running, linked to its
// execution.
func (g *GraphStore) CreateStepExecution(ctx context.Context, se *domain.StepExecution) error {
	rows, err := g.store.Execute(ctx,
		`MATCH (e:WorkflowExecution {id: $executionId})
		 CREATE (s:StepExecution {id: $id, stepId: $stepId, status: $status, startedAt: $startedAt})-[:PART_OF]->(e)
		 RETURN s.id AS id`,
		map[string]any{
			"executionId": se.ExecutionID,
			"id":          se.ID,
			"stepId":      se.StepID,
			"status":      string(se.Status),
			"startedAt":   se.StartedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("failed to create step execution: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("execution %s not found", se.ExecutionID)
	}
	return nil
}

// CompleteStepExecution settles a running step execution. It reports false
// when the step was not running, so a settled step is never overwritten.
func (g *GraphStore) CompleteStepExecution(ctx context.Context, id string, status domain.StepStatus, errMsg string) (bool, error) {
	rows, err := g.store.Execute(ctx,
		`MATCH (s:StepExecution {id: $id})
		 SET s._lock = true
		 WITH s
		 WHERE s.status = $running
		 SET s.status = $status, s.completedAt = $now, s.error = $error
		 RETURN s.id AS id`,
		map[string]any{
			"id":      id,
			"running": string(domain.StepStatusRunning),
			"status":  string(status),
			"now":     time.Now().UnixMilli(),
			"error":   errMsg,
		})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func scanJob(row map[string]any) (*domain.Job, error) {
	job := &domain.Job{
		ID:     asString(row["id"]),
		Type:   asString(row["type"]),
		Status: domain.JobStatus(asString(row["status"])),
		Error:  asString(row["error"]),
	}
	if s := asString(row["payload"]); s != "" {
		job.Payload = json.RawMessage(s)
	}
	if s := asString(row["options"]); s != "" {
		job.Options = json.RawMessage(s)
	}
	if s := asString(row["result"]); s != "" {
		job.Result = json.RawMessage(s)
	}
	created, ok := asMillis(row["createdAt"])
	if !ok {
		return nil, fmt.Errorf("job %s has no createdAt", job.ID)
	}
	job.CreatedAt = created
	if t, ok := asMillis(row["startedAt"]); ok {
		job.StartedAt = &t
	}
	if t, ok := asMillis(row["completedAt"]); ok {
		job.CompletedAt = &t
	}
	return job, nil
}

func scanExecution(row map[string]any) (*domain.WorkflowExecution, error) {
	exec := &domain.WorkflowExecution{
		ID:           asString(row["id"]),
		WorkflowName: asString(row["workflowName"]),
		Status:       domain.ExecutionStatus(asString(row["status"])),
		Error:        asString(row["error"]),
		StepResults:  map[string]domain.StepResult{},
	}
	if s := asString(row["inputs"]); s != "" {
		if err := json.Unmarshal([]byte(s), &exec.Inputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inputs of execution %s: %w", exec.ID, err)
		}
	}
	if s := asString(row["stepResults"]); s != "" {
		if err := json.Unmarshal([]byte(s), &exec.StepResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step results of execution %s: %w", exec.ID, err)
		}
	}
	started, ok := asMillis(row["startedAt"])
	if !ok {
		return nil, fmt.Errorf("execution %s has no startedAt", exec.ID)
	}
	exec.StartedAt = started
	if t, ok := asMillis(row["completedAt"]); ok {
		exec.CompletedAt = &t
	}
	return exec, nil
}

func rawString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	return string(raw)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asMillis(v any) (time.Time, bool) {
	switch n := v.(type) {
	case int64:
		return time.UnixMilli(n), true
	case float64:
		return time.UnixMilli(int64(n)), true
	}
	return time.Time{}, false
}
