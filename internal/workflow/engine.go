package workflow

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
	"github.com/simik394/osobni-wf-sub002/internal/policy"
	"github.com/simik394/osobni-wf-sub002/internal/provider"
	"github.com/simik394/osobni-wf-sub002/internal/store"
)

// Engine executes named workflows in dependency order, interpolating
// prior step results into subsequent step params and recording execution
// state through the resilient store.
type Engine struct {
	store       store.Store
	providers   *provider.Registry
	policy      *policy.Engine
	defs        map[string]*domain.WorkflowDefinition
	stepTimeout time.Duration
}

// NewEngine creates an engine over the given definitions. policyEngine
// may be nil, in which case every dispatch is allowed.
func NewEngine(s store.Store, providers *provider.Registry, policyEngine *policy.Engine, defs map[string]*domain.WorkflowDefinition, stepTimeout time.Duration) *Engine {
	return &Engine{
		store:       s,
		providers:   providers,
		policy:      policyEngine,
		defs:        defs,
		stepTimeout: stepTimeout,
	}
}

// Workflows returns the loaded workflow names, sorted.
func (e *Engine) Workflows() []string {
	names := make([]string, 0, len(e.defs))
	for name := range e.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetExecution retrieves a persisted execution, nil when not found.
func (e *Engine) GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error) {
	return e.store.GetExecution(ctx, id)
}

// Execute runs a named workflow to completion. Each call creates a new,
// independent execution; results are never memoized across runs. A step
// never runs before all of its declared dependencies have a recorded
// result, and a hard step failure stops all further scheduling.
//
// The returned execution is non-nil whenever one was created, so callers
// can inspect partial state alongside the error.
func (e *Engine) Execute(ctx context.Context, name string, inputs map[string]any) (*domain.WorkflowExecution, error) {
	def, ok := e.defs[name]
	if !ok {
		return nil, &domain.DefinitionError{Workflow: name, Reason: "unknown workflow"}
	}
	if err := Validate(def); err != nil {
		return nil, err
	}

	exec := &domain.WorkflowExecution{
		ID:           "wf_" + uuid.New().String()[:8],
		WorkflowName: name,
		Status:       domain.ExecutionStatusRunning,
		Inputs:       inputs,
		StepResults:  make(map[string]domain.StepResult),
		StartedAt:    time.Now(),
	}
	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}
	log.Printf("INFO: execution %s of workflow %q started", exec.ID, name)

	settled := make(map[string]bool, len(def.Steps))
	for len(settled) < len(def.Steps) {
		progressed := false
		for i := range def.Steps {
			step := &def.Steps[i]
			if settled[step.ID] || !e.ready(step, exec) {
				continue
			}
			if err := e.runStep(ctx, def, exec, step); err != nil {
				return e.fail(ctx, exec, err)
			}
			settled[step.ID] = true
			progressed = true
		}
		if !progressed {
			// Unreachable after Validate, kept as a guard against a
			// definition mutated at runtime.
			err := &domain.DefinitionError{Workflow: name, Reason: "no runnable steps remain"}
			return e.fail(ctx, exec, err)
		}
	}

	exec.Status = domain.ExecutionStatusCompleted
	if err := e.store.CompleteExecution(ctx, exec.ID, domain.ExecutionStatusCompleted, ""); err != nil {
		return exec, fmt.Errorf("failed to complete execution %s: %w", exec.ID, err)
	}
	log.Printf("INFO: execution %s completed", exec.ID)
	return exec, nil
}

func (e *Engine) ready(step *domain.Step, exec *domain.WorkflowExecution) bool {
	for _, dep := range step.DependsOn {
		if _, ok := exec.StepResults[dep]; !ok {
			return false
		}
	}
	return true
}

func (e *Engine) runStep(ctx context.Context, def *domain.WorkflowDefinition, exec *domain.WorkflowExecution, step *domain.Step) error {
	params, err := Interpolate(def.Name, step.ID, step.Params, exec.Inputs, exec.StepResults)
	if err != nil {
		return err
	}

	se := &domain.StepExecution{
		ID:          "step_" + uuid.New().String()[:8],
		ExecutionID: exec.ID,
		StepID:      step.ID,
		Status:      domain.StepStatusRunning,
		StartedAt:   time.Now(),
	}
	if err := e.store.CreateStepExecution(ctx, se); err != nil {
		return fmt.Errorf("failed to record step %s: %w", step.ID, err)
	}

	if e.policy != nil {
		decision, err := e.policy.Evaluate(ctx, policy.Input{
			Workflow:   def.Name,
			Step:       step.ID,
			Capability: step.Capability,
			Action:     step.Action,
		})
		if err != nil {
			return e.failStep(ctx, exec, se, step, fmt.Errorf("policy evaluation failed: %w", err))
		}
		if decision != policy.DecisionAllow {
			return e.failStep(ctx, exec, se, step,
				fmt.Errorf("capability %q action %q blocked by policy", step.Capability, step.Action))
		}
	}

	prov, err := e.providers.Get(step.Capability)
	if err != nil {
		return e.failStep(ctx, exec, se, step, err)
	}

	dctx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	value, err := prov.Invoke(dctx, step.Action, params)
	cancel()
	if err != nil {
		return e.failStep(ctx, exec, se, step, err)
	}

	result := domain.StepResult{Value: value}
	if reporter, ok := prov.(provider.ContextReporter); ok {
		if sessionCtx := reporter.SessionContext(); len(sessionCtx) > 0 {
			result.Fields = sessionCtx
		}
	}
	exec.StepResults[step.ID] = result

	if err := e.store.SaveStepResults(ctx, exec.ID, exec.StepResults); err != nil {
		return e.failStep(ctx, exec, se, step, fmt.Errorf("failed to persist step result: %w", err))
	}
	if _, err := e.store.CompleteStepExecution(ctx, se.ID, domain.StepStatusCompleted, ""); err != nil {
		log.Printf("ERROR: failed to settle step execution %s: %v", se.ID, err)
	}
	log.Printf("INFO: execution %s step %q completed", exec.ID, step.ID)
	return nil
}

func (e *Engine) failStep(ctx context.Context, exec *domain.WorkflowExecution, se *domain.StepExecution, step *domain.Step, cause error) error {
	stepErr := &domain.StepExecutionError{
		Workflow:    exec.WorkflowName,
		ExecutionID: exec.ID,
		StepID:      step.ID,
		Err:         cause,
	}
	if _, err := e.store.CompleteStepExecution(ctx, se.ID, domain.StepStatusFailed, cause.Error()); err != nil {
		log.Printf("ERROR: failed to settle step execution %s: %v", se.ID, err)
	}
	return stepErr
}

func (e *Engine) fail(ctx context.Context, exec *domain.WorkflowExecution, cause error) (*domain.WorkflowExecution, error) {
	exec.Status = domain.ExecutionStatusFailed
	exec.Error = cause.Error()
	if err := e.store.CompleteExecution(ctx, exec.ID, domain.ExecutionStatusFailed, cause.Error()); err != nil {
		log.Printf("ERROR: failed to mark execution %s failed: %v", exec.ID, err)
	}
	log.Printf("ERROR: execution %s failed: %v", exec.ID, cause)
	return exec, cause
}
