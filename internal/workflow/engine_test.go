package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
	"github.com/simik394/osobni-wf-sub002/internal/provider"
	"github.com/simik394/osobni-wf-sub002/internal/store/storetest"
)

type mockProvider struct {
	name       string
	result     any
	err        error
	sessionCtx map[string]any
	calls      []mockCall
}

type mockCall struct {
	action string
	params map[string]any
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Invoke(_ context.Context, action string, params map[string]any) (any, error) {
	m.calls = append(m.calls, mockCall{action: action, params: params})
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockProvider) SessionContext() map[string]any { return m.sessionCtx }

func researchDefinition() *domain.WorkflowDefinition {
	return &domain.WorkflowDefinition{
		Name: "deep-research",
		Steps: []domain.Step{
			{
				ID:         "step1",
				Capability: "research-agent",
				Action:     "deep_research",
				Params:     map[string]any{"query": "${inputs.topic}"},
			},
			{
				ID:         "step2",
				Capability: "document-exporter",
				Action:     "export",
				Params: map[string]any{
					"query": "Result: ${steps.step1} Session: ${steps.step1.sessionId}",
				},
				DependsOn: []string{"step1"},
			},
		},
	}
}

func newTestEngine(defs ...*domain.WorkflowDefinition) (*Engine, *storetest.MemStore, *provider.Registry) {
	st := storetest.New()
	reg := provider.NewRegistry()
	byName := make(map[string]*domain.WorkflowDefinition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	return NewEngine(st, reg, nil, byName, time.Minute), st, reg
}

func TestExecuteInterpolatesAcrossSteps(t *testing.T) {
	eng, st, reg := newTestEngine(researchDefinition())
	research := &mockProvider{
		name:       "research-agent",
		result:     "Mock Response",
		sessionCtx: map[string]any{"sessionId": "mock-session-id"},
	}
	exporter := &mockProvider{name: "document-exporter", result: "ok"}
	if err := reg.Register(research); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(exporter); err != nil {
		t.Fatal(err)
	}

	exec, err := eng.Execute(context.Background(), "deep-research", map[string]any{"topic": "golang"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if exec.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("expected completed execution, got %s", exec.Status)
	}

	if len(research.calls) != 1 || research.calls[0].params["query"] != "golang" {
		t.Fatalf("unexpected research calls: %+v", research.calls)
	}
	if len(exporter.calls) != 1 {
		t.Fatalf("expected one exporter call, got %d", len(exporter.calls))
	}
	got := exporter.calls[0].params["query"]
	want := "Result: Mock Response Session: mock-session-id"
	if got != want {
		t.Fatalf("interpolated param = %q, want %q", got, want)
	}

	persisted, err := st.GetExecution(context.Background(), exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if persisted == nil || persisted.Status != domain.ExecutionStatusCompleted {
		t.Fatalf("persisted execution not completed: %+v", persisted)
	}
	if persisted.StepResults["step1"].Value != "Mock Response" {
		t.Fatalf("step1 result not persisted: %+v", persisted.StepResults)
	}

	steps := st.StepExecutions(exec.ID)
	if len(steps) != 2 {
		t.Fatalf("expected 2 step executions, got %d", len(steps))
	}
	for _, se := range steps {
		if se.Status != domain.StepStatusCompleted {
			t.Fatalf("step %s status = %s, want completed", se.StepID, se.Status)
		}
	}
}

func TestExecuteEachRunIsIndependent(t *testing.T) {
	eng, _, reg := newTestEngine(researchDefinition())
	research := &mockProvider{
		name:       "research-agent",
		result:     "Mock Response",
		sessionCtx: map[string]any{"sessionId": "mock-session-id"},
	}
	exporter := &mockProvider{name: "document-exporter", result: "ok"}
	reg.Register(research)
	reg.Register(exporter)

	first, err := eng.Execute(context.Background(), "deep-research", map[string]any{"topic": "a"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := eng.Execute(context.Background(), "deep-research", map[string]any{"topic": "b"})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatalf("executions share id %s", first.ID)
	}
	if len(research.calls) != 2 {
		t.Fatalf("results were reused across runs: %d calls", len(research.calls))
	}
}

func TestExecuteStepFailureStopsScheduling(t *testing.T) {
	eng, st, reg := newTestEngine(researchDefinition())
	research := &mockProvider{name: "research-agent", err: errors.New("upstream exploded")}
	exporter := &mockProvider{name: "document-exporter", result: "ok"}
	reg.Register(research)
	reg.Register(exporter)

	exec, err := eng.Execute(context.Background(), "deep-research", map[string]any{"topic": "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var stepErr *domain.StepExecutionError
	if !errors.As(err, &stepErr) || stepErr.StepID != "step1" {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec == nil || exec.Status != domain.ExecutionStatusFailed {
		t.Fatalf("execution not marked failed: %+v", exec)
	}
	if len(exporter.calls) != 0 {
		t.Fatalf("dependent step ran after failure: %+v", exporter.calls)
	}

	steps := st.StepExecutions(exec.ID)
	if len(steps) != 1 {
		t.Fatalf("expected 1 step execution, got %d", len(steps))
	}
	if steps[0].Status != domain.StepStatusFailed || !strings.Contains(steps[0].Error, "upstream exploded") {
		t.Fatalf("step execution not settled as failed: %+v", steps[0])
	}
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	eng, _, _ := newTestEngine()
	_, err := eng.Execute(context.Background(), "nope", nil)
	var defErr *domain.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError, got %v", err)
	}
}

func TestExecuteUnresolvableReferenceFailsBeforeDispatch(t *testing.T) {
	def := &domain.WorkflowDefinition{
		Name: "broken",
		Steps: []domain.Step{
			{
				ID:         "only",
				Capability: "research-agent",
				Action:     "deep_research",
				Params:     map[string]any{"query": "${inputs.missing}"},
			},
		},
	}
	eng, _, reg := newTestEngine(def)
	research := &mockProvider{name: "research-agent", result: "x"}
	reg.Register(research)

	_, err := eng.Execute(context.Background(), "broken", map[string]any{})
	var defErr *domain.DefinitionError
	if !errors.As(err, &defErr) {
		t.Fatalf("expected DefinitionError, got %v", err)
	}
	if len(research.calls) != 0 {
		t.Fatal("provider was invoked despite unresolvable reference")
	}
}

func TestWorkflowsSorted(t *testing.T) {
	eng, _, _ := newTestEngine(
		&domain.WorkflowDefinition{Name: "zeta", Steps: []domain.Step{{ID: "a", Capability: "c", Action: "x"}}},
		&domain.WorkflowDefinition{Name: "alpha", Steps: []domain.Step{{ID: "a", Capability: "c", Action: "x"}}},
	)
	names := eng.Workflows()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("unexpected names: %v", names)
	}
}
