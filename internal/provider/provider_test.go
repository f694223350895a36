package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := NewHTTPProvider("research-agent", "http://localhost:9000", time.Second, 0)

	assert.NoError(t, r.Register(p))
	assert.Error(t, r.Register(p), "duplicate registration must fail")

	got, err := r.Get("research-agent")
	assert.NoError(t, err)
	assert.Equal(t, "research-agent", got.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestHTTPProviderInvoke(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"Mock Response","context":{"sessionId":"mock-session-id"}}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider("research-agent", srv.URL, 5*time.Second, 0)
	value, err := p.Invoke(context.Background(), "deep_research", map[string]any{"query": "graph stores"})
	assert.NoError(t, err)
	assert.Equal(t, "Mock Response", value)
	assert.Equal(t, "/actions/deep_research", gotPath)
	assert.Equal(t, map[string]any{"params": map[string]any{"query": "graph stores"}}, gotBody)

	assert.Equal(t, map[string]any{"sessionId": "mock-session-id"}, p.SessionContext())
}

func TestHTTPProviderMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	p := NewHTTPProvider("research-agent", srv.URL, 5*time.Second, 0)
	_, err := p.Invoke(context.Background(), "deep_research", nil)
	assert.Error(t, err)
}
