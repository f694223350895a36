// Package workflow loads workflow definitions and executes them in
// dependency order with cross-step data flow.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// LoadDir reads every *.yaml/*.yml workflow definition in dir and
// validates each one. Definitions are immutable after loading.
func LoadDir(dir string) (map[string]*domain.WorkflowDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows dir: %w", err)
	}

	defs := make(map[string]*domain.WorkflowDefinition)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		var def domain.WorkflowDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		if err := Validate(&def); err != nil {
			return nil, fmt.Errorf("invalid definition in %s: %w", entry.Name(), err)
		}
		if _, exists := defs[def.Name]; exists {
			return nil, fmt.Errorf("duplicate workflow name %q in %s", def.Name, entry.Name())
		}
		defs[def.Name] = &def
	}
	return defs, nil
}

// Validate checks structural soundness of a definition: named steps with
// capability and action, dependencies that reference known steps, and an
// acyclic dependency graph.
func Validate(def *domain.WorkflowDefinition) error {
	if def.Name == "" {
		return &domain.DefinitionError{Workflow: def.Name, Reason: "workflow name is required"}
	}
	if len(def.Steps) == 0 {
		return &domain.DefinitionError{Workflow: def.Name, Reason: "workflow has no steps"}
	}

	ids := make(map[string]bool, len(def.Steps))
	for _, step := range def.Steps {
		if step.ID == "" {
			return &domain.DefinitionError{Workflow: def.Name, Reason: "step id is required"}
		}
		if ids[step.ID] {
			return &domain.DefinitionError{Workflow: def.Name, Step: step.ID, Reason: "duplicate step id"}
		}
		ids[step.ID] = true
		if step.Capability == "" || step.Action == "" {
			return &domain.DefinitionError{Workflow: def.Name, Step: step.ID, Reason: "capability and action are required"}
		}
	}
	for _, step := range def.Steps {
		for _, dep := range step.DependsOn {
			if !ids[dep] {
				return &domain.DefinitionError{Workflow: def.Name, Step: step.ID,
					Reason: fmt.Sprintf("depends on unknown step %q", dep)}
			}
		}
	}
	if cycle := findCycle(def.Steps); cycle != nil {
		return &domain.DefinitionError{Workflow: def.Name,
			Reason: "circular dependency: " + strings.Join(cycle, " -> ")}
	}
	return nil
}

// findCycle runs Kahn's algorithm over the dependency graph and, when the
// topological sort does not cover every step, reconstructs one cycle path
// via DFS for the error message. Returns nil for an acyclic graph.
func findCycle(steps []domain.Step) []string {
	deps := make(map[string][]string, len(steps))
	var names []string
	for _, step := range steps {
		names = append(names, step.ID)
		deps[step.ID] = step.DependsOn
	}

	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, name := range names {
		inDegree[name] = 0
	}
	for name, ds := range deps {
		for _, dep := range ds {
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for _, name := range names {
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	sorted := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		sorted++
		for _, dependent := range dependents[name] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	if sorted == len(names) {
		return nil
	}
	return cyclePath(names, deps)
}

func cyclePath(names []string, deps map[string][]string) []string {
	const (
		unvisited = iota
		inPath
		done
	)
	color := make(map[string]int)
	parent := make(map[string]string)
	var path []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = inPath
		for _, dep := range deps[node] {
			if color[dep] == inPath {
				path = []string{dep}
				for current := node; current != dep; current = parent[current] {
					path = append(path, current)
				}
				path = append(path, dep)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return true
			}
			if color[dep] == unvisited {
				parent[dep] = node
				if dfs(dep) {
					return true
				}
			}
		}
		color[node] = done
		return false
	}

	for _, name := range names {
		if color[name] == unvisited && dfs(name) {
			return path
		}
	}
	return nil
}
