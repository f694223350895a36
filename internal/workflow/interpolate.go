package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate resolves `${inputs.NAME}`, `${steps.ID}` and
// `${steps.ID.FIELD}` placeholders in step params against the execution
// inputs and prior step results. String values are expanded recursively
// through nested maps and lists; resolved values are string-coerced into
// the surrounding template. An unresolvable reference is a
// DefinitionError, never a silent empty string.
func Interpolate(workflow, stepID string, params, inputs map[string]any, results map[string]domain.StepResult) (map[string]any, error) {
	r := &resolver{workflow: workflow, step: stepID, inputs: inputs, results: results}
	out, err := r.resolveMap(params)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type resolver struct {
	workflow string
	step     string
	inputs   map[string]any
	results  map[string]domain.StepResult
}

func (r *resolver) resolveMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		resolved, err := r.resolveValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = resolved
	}
	return out, nil
}

func (r *resolver) resolveValue(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return r.expand(v)
	case map[string]any:
		return r.resolveMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := r.resolveValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func (r *resolver) expand(s string) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		value, err := r.lookup(path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (r *resolver) lookup(path string) (any, error) {
	parts := strings.Split(path, ".")
	switch {
	case parts[0] == "inputs" && len(parts) == 2:
		value, ok := r.inputs[parts[1]]
		if !ok {
			return nil, r.unresolvable(path, "no such input")
		}
		return value, nil
	case parts[0] == "steps" && (len(parts) == 2 || len(parts) == 3):
		result, ok := r.results[parts[1]]
		if !ok {
			return nil, r.unresolvable(path, "no result for step")
		}
		if len(parts) == 2 {
			return result.Value, nil
		}
		field, ok := result.Fields[parts[2]]
		if !ok {
			return nil, r.unresolvable(path, "no such field on step result")
		}
		return field, nil
	default:
		return nil, r.unresolvable(path, "unknown reference namespace")
	}
}

func (r *resolver) unresolvable(path, detail string) error {
	return &domain.DefinitionError{
		Workflow: r.workflow,
		Step:     r.step,
		Reason:   fmt.Sprintf("unresolvable reference %q: %s", path, detail),
	}
}
