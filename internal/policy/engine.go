// Package policy gates capability dispatch through an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the policy evaluation input for one step dispatch.
type Input struct {
	Workflow   string `json:"workflow"`
	Step       string `json:"step"`
	Capability string `json:"capability"`
	Action     string `json:"action"`
}

// Engine is the OPA policy engine consulted before every capability
// dispatch.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares a policy engine from the given Rego module.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.capability_policy.decision"),
		rego.Module("capability_policy.rego", policyContent),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate returns the policy decision for a dispatch. An absent or
// non-string decision is treated as allow; the policy is expected to
// declare its own default.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy allows the known capability set and blocks everything
// else.
const DefaultPolicy = `
package capability_policy

known_capabilities := {"query-agent", "research-agent", "document-exporter", "audio-synthesizer"}

default decision = "block"

decision = "allow" {
	known_capabilities[input.capability]
}
`
