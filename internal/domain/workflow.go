package domain

import "time"

// WorkflowDefinition is a named, immutable description of a multi-step
// workflow loaded at startup.
type WorkflowDefinition struct {
	Name  string `yaml:"name" json:"name"`
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step is a single unit of work inside a workflow definition. Params may
// contain `${inputs.NAME}`, `${steps.ID}` and `${steps.ID.FIELD}`
// placeholders resolved against the execution context at dispatch time.
type Step struct {
	ID         string         `yaml:"id" json:"id"`
	Capability string         `yaml:"capability" json:"capability"`
	Action     string         `yaml:"action" json:"action"`
	Params     map[string]any `yaml:"params" json:"params,omitempty"`
	DependsOn  []string       `yaml:"depends_on" json:"depends_on,omitempty"`
}

// StepResult records the outcome of one completed step. Value is what a
// bare `${steps.ID}` reference resolves to; Fields holds provider-exposed
// auxiliary context reachable by dotted path.
type StepResult struct {
	Value  any            `json:"value"`
	Fields map[string]any `json:"fields,omitempty"`
}

// WorkflowExecution is one run of a named workflow. It is created in the
// running state, step results are folded in as steps settle, and it is
// terminal once all steps complete or one fails.
type WorkflowExecution struct {
	ID           string                `json:"id"`
	WorkflowName string                `json:"workflow_name"`
	Status       ExecutionStatus       `json:"status"`
	Inputs       map[string]any        `json:"inputs,omitempty"`
	StepResults  map[string]StepResult `json:"step_results"`
	Error        string                `json:"error,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
}

// StepExecution is the persisted record of a single step dispatch within
// a workflow execution.
type StepExecution struct {
	ID          string     `json:"id"`
	ExecutionID string     `json:"execution_id"`
	StepID      string     `json:"step_id"`
	Status      StepStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
