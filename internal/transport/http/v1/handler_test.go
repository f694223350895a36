package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
	"github.com/simik394/osobni-wf-sub002/internal/ledger"
	"github.com/simik394/osobni-wf-sub002/internal/provider"
	"github.com/simik394/osobni-wf-sub002/internal/registry"
	"github.com/simik394/osobni-wf-sub002/internal/store/storetest"
	"github.com/simik394/osobni-wf-sub002/internal/workflow"
)

type stubProvider struct {
	name   string
	result any
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Invoke(context.Context, string, map[string]any) (any, error) {
	return p.result, nil
}

func newTestHandler(t *testing.T) (*Handler, *storetest.MemStore) {
	t.Helper()
	st := storetest.New()
	jobs := ledger.New(st)

	providers := provider.NewRegistry()
	require.NoError(t, providers.Register(&stubProvider{name: "research-agent", result: "done"}))
	defs := map[string]*domain.WorkflowDefinition{
		"simple": {
			Name: "simple",
			Steps: []domain.Step{
				{ID: "only", Capability: "research-agent", Action: "deep_research",
					Params: map[string]any{"query": "${inputs.topic}"}},
			},
		},
		"dangling-ref": {
			Name: "dangling-ref",
			Steps: []domain.Step{
				{ID: "only", Capability: "research-agent", Action: "deep_research",
					Params: map[string]any{"query": "${steps.only.missing}"}},
			},
		},
	}
	engine := workflow.NewEngine(st, providers, nil, defs, time.Second)

	reg, err := registry.Load(t.TempDir() + "/artifacts.json")
	require.NoError(t, err)

	return NewHandler(jobs, engine, reg), st
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	require.NoError(t, h(c))
	return rec
}

func TestCreateJob(t *testing.T) {
	h, st := newTestHandler(t)

	rec := doJSON(t, h.CreateJob, http.MethodPost, "/v1/jobs",
		`{"type":"research.query","payload":{"query":"golang"}}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var job domain.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Len(t, job.ID, 8)
	assert.Equal(t, domain.JobStatusQueued, job.Status)

	stored, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestCreateJobValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.CreateJob, http.MethodPost, "/v1/jobs", `{"payload":{}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.GetJob, http.MethodGet, "/v1/jobs/nope", "", func(c echo.Context) {
		c.SetParamNames("job_id")
		c.SetParamValues("nope")
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobsFilterByStatus(t *testing.T) {
	h, _ := newTestHandler(t)
	doJSON(t, h.CreateJob, http.MethodPost, "/v1/jobs", `{"type":"a","payload":{}}`, nil)
	doJSON(t, h.CreateJob, http.MethodPost, "/v1/jobs", `{"type":"b","payload":{}}`, nil)

	rec := doJSON(t, h.ListJobs, http.MethodGet, "/v1/jobs?status=queued", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs []domain.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Jobs, 2)
}

func TestExecuteWorkflow(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.ExecuteWorkflow, http.MethodPost, "/v1/workflows/simple/execute",
		`{"inputs":{"topic":"golang"}}`, func(c echo.Context) {
			c.SetParamNames("name")
			c.SetParamValues("simple")
		})
	require.Equal(t, http.StatusOK, rec.Code)

	var exec domain.WorkflowExecution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exec))
	assert.Equal(t, domain.ExecutionStatusCompleted, exec.Status)
	assert.Equal(t, "done", exec.StepResults["only"].Value)
}

func TestExecuteDefinitionErrorMidRunIsBadRequest(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.ExecuteWorkflow, http.MethodPost, "/v1/workflows/dangling-ref/execute", `{}`,
		func(c echo.Context) {
			c.SetParamNames("name")
			c.SetParamValues("dangling-ref")
		})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// The partial execution state is still in the body.
	var resp struct {
		Error     string                    `json:"error"`
		Execution *domain.WorkflowExecution `json:"execution"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Execution)
	assert.Equal(t, domain.ExecutionStatusFailed, resp.Execution.Status)
	assert.Contains(t, resp.Error, "unresolvable reference")
}

func TestExecuteUnknownWorkflowIsBadRequest(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.ExecuteWorkflow, http.MethodPost, "/v1/workflows/nope/execute", `{}`,
		func(c echo.Context) {
			c.SetParamNames("name")
			c.SetParamValues("nope")
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArtifactEndpoints(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(t, h.RegisterSession, http.MethodPost, "/v1/artifacts/sessions",
		`{"external_id":"ext-1","query":"quantum"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	sessionID := created["id"]
	require.Len(t, sessionID, 3)

	rec = doJSON(t, h.RegisterDocument, http.MethodPost, "/v1/artifacts/documents",
		`{"session_id":"`+sessionID+`","external_id":"doc-1","title":"Report"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	docID := created["id"]
	assert.Equal(t, sessionID+"-01", docID)

	rec = doJSON(t, h.RegisterAudio, http.MethodPost, "/v1/artifacts/audio",
		`{"document_id":"`+docID+`","provider_ref":"ref","title":"Overview"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	audioID := created["id"]
	assert.Equal(t, docID+"-A", audioID)

	rec = doJSON(t, h.GetLineage, http.MethodGet, "/v1/artifacts/"+audioID+"/lineage", "",
		func(c echo.Context) {
			c.SetParamNames("artifact_id")
			c.SetParamValues(audioID)
		})
	require.Equal(t, http.StatusOK, rec.Code)
	var lineageResp struct {
		Lineage []domain.ArtifactEntry `json:"lineage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lineageResp))
	require.Len(t, lineageResp.Lineage, 3)
	assert.Equal(t, audioID, lineageResp.Lineage[0].ID)
	assert.Equal(t, sessionID, lineageResp.Lineage[2].ID)
}

func TestRegisterDocumentUnknownSession(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.RegisterDocument, http.MethodPost, "/v1/artifacts/documents",
		`{"session_id":"XYZ","title":"t"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListArtifactsRequiresType(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.ListArtifacts, http.MethodGet, "/v1/artifacts", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Health, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
