package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// HTTPProvider dispatches actions to a capability backend over HTTP. The
// backend wraps whatever automation actually fulfils the capability; this
// side only speaks the action/result contract.
type HTTPProvider struct {
	name   string
	client *TriggerClient

	mu         sync.Mutex
	sessionCtx map[string]any
}

type actionResponse struct {
	Result  any            `json:"result"`
	Context map[string]any `json:"context,omitempty"`
}

// NewHTTPProvider creates a provider named name that forwards actions to
// baseURL through the retrying trigger client.
func NewHTTPProvider(name, baseURL string, timeout, retryDelay time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:   name,
		client: NewTriggerClient(baseURL, timeout, retryDelay),
	}
}

// Name returns the capability name this provider serves.
func (p *HTTPProvider) Name() string { return p.name }

// Invoke posts the action to the backend and returns the primary result.
// Auxiliary context returned by the backend is kept for SessionContext.
func (p *HTTPProvider) Invoke(ctx context.Context, action string, params map[string]any) (any, error) {
	body, err := p.client.Post(ctx, "actions/"+action, map[string]any{"params": params})
	if err != nil {
		return nil, fmt.Errorf("action %q on %s failed: %w", action, p.name, err)
	}

	var resp actionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("action %q on %s returned malformed response: %w", action, p.name, err)
	}

	p.mu.Lock()
	p.sessionCtx = resp.Context
	p.mu.Unlock()
	return resp.Result, nil
}

// SessionContext returns the auxiliary context of the last successful
// action, nil when the backend exposed none.
func (p *HTTPProvider) SessionContext() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionCtx
}
