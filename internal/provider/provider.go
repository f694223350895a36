// Package provider defines the capability-provider contract consumed by
// the workflow engine and the clients used to reach external
// orchestration APIs.
package provider

import (
	"context"
	"fmt"
	"sync"
)

// Provider is an external collaborator exposing named actions. An action
// either runs to completion or polls an underlying long-running task to
// completion before returning.
type Provider interface {
	Name() string
	Invoke(ctx context.Context, action string, params map[string]any) (any, error)
}

// ContextReporter is optionally implemented by providers that expose
// session context. The engine reads it immediately after a successful
// action to populate step result auxiliary fields.
type ContextReporter interface {
	SessionContext() map[string]any
}

// Registry stores capability providers keyed by name. The engine depends
// only on this registry, never on a concrete provider type.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its name.
func (r *Registry) Register(p Provider) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("provider name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; exists {
		return fmt.Errorf("provider already registered for %s", p.Name())
	}
	r.providers[p.Name()] = p
	return nil
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("no provider registered for %s", name)
	}
	return p, nil
}

// Names lists registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
