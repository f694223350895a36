package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

func TestInterpolateCompositeString(t *testing.T) {
	results := map[string]domain.StepResult{
		"step1": {
			Value:  "Mock Response",
			Fields: map[string]any{"sessionId": "mock-session-id"},
		},
	}
	params := map[string]any{
		"query": "Result: ${steps.step1} Session: ${steps.step1.sessionId}",
	}
	out, err := Interpolate("wf", "step2", params, nil, results)
	if err != nil {
		t.Fatal(err)
	}
	if out["query"] != "Result: Mock Response Session: mock-session-id" {
		t.Fatalf("got %q", out["query"])
	}
}

func TestInterpolateInputsAndNesting(t *testing.T) {
	inputs := map[string]any{"topic": "golang", "depth": 3}
	params := map[string]any{
		"query": "${inputs.topic}",
		"options": map[string]any{
			"label": "depth ${inputs.depth}",
			"tags":  []any{"${inputs.topic}", "static"},
		},
		"limit": 10,
	}
	out, err := Interpolate("wf", "s", params, inputs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out["query"] != "golang" {
		t.Fatalf("query = %v", out["query"])
	}
	opts := out["options"].(map[string]any)
	if opts["label"] != "depth 3" {
		t.Fatalf("label = %v", opts["label"])
	}
	tags := opts["tags"].([]any)
	if tags[0] != "golang" || tags[1] != "static" {
		t.Fatalf("tags = %v", tags)
	}
	if out["limit"] != 10 {
		t.Fatalf("non-string values must pass through, got %v", out["limit"])
	}
}

func TestInterpolateUnresolvable(t *testing.T) {
	cases := []struct {
		name   string
		tmpl   string
		detail string
	}{
		{"missing input", "${inputs.nope}", "no such input"},
		{"missing step", "${steps.ghost}", "no result for step"},
		{"missing field", "${steps.step1.nope}", "no such field"},
		{"bad namespace", "${env.HOME}", "unknown reference namespace"},
	}
	results := map[string]domain.StepResult{"step1": {Value: "x"}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Interpolate("wf", "s", map[string]any{"p": tc.tmpl}, map[string]any{}, results)
			var defErr *domain.DefinitionError
			if !errors.As(err, &defErr) {
				t.Fatalf("expected DefinitionError, got %v", err)
			}
			if !strings.Contains(defErr.Reason, tc.detail) {
				t.Fatalf("reason %q missing %q", defErr.Reason, tc.detail)
			}
		})
	}
}

func TestInterpolateLeavesPlainStrings(t *testing.T) {
	out, err := Interpolate("wf", "s", map[string]any{"p": "no placeholders here"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out["p"] != "no placeholders here" {
		t.Fatalf("got %v", out["p"])
	}
}
