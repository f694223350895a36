// Package v1 provides the HTTP API for the orchestration core.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// JobService is the job surface consumed by the transport layer.
type JobService interface {
	AddJob(ctx context.Context, jobType string, payload, options json.RawMessage) (*domain.Job, error)
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, status domain.JobStatus, jobType string, limit int) ([]domain.Job, error)
}

// WorkflowService is the workflow surface consumed by the transport layer.
type WorkflowService interface {
	Execute(ctx context.Context, name string, inputs map[string]any) (*domain.WorkflowExecution, error)
	GetExecution(ctx context.Context, id string) (*domain.WorkflowExecution, error)
	Workflows() []string
}

// ArtifactService is the artifact surface consumed by the transport layer.
type ArtifactService interface {
	RegisterSession(externalID, query string) (string, error)
	RegisterDocument(sessionID, externalID, title string) (string, error)
	RegisterAudio(docID, providerRef, title string) (string, error)
	Get(id string) *domain.ArtifactEntry
	GetLineage(id string) []domain.ArtifactEntry
	ListByType(t domain.ArtifactType) []domain.ArtifactEntry
}

// Handler handles HTTP requests.
type Handler struct {
	jobs      JobService
	workflows WorkflowService
	artifacts ArtifactService
}

// NewHandler creates a new handler.
func NewHandler(jobs JobService, workflows WorkflowService, artifacts ArtifactService) *Handler {
	return &Handler{
		jobs:      jobs,
		workflows: workflows,
		artifacts: artifacts,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Job API
	e.POST("/v1/jobs", h.CreateJob)
	e.GET("/v1/jobs", h.ListJobs)
	e.GET("/v1/jobs/:job_id", h.GetJob)

	// Workflow API
	e.GET("/v1/workflows", h.ListWorkflows)
	e.POST("/v1/workflows/:name/execute", h.ExecuteWorkflow)
	e.GET("/v1/executions/:execution_id", h.GetExecution)

	// Artifact API
	e.POST("/v1/artifacts/sessions", h.RegisterSession)
	e.POST("/v1/artifacts/documents", h.RegisterDocument)
	e.POST("/v1/artifacts/audio", h.RegisterAudio)
	e.GET("/v1/artifacts/:artifact_id", h.GetArtifact)
	e.GET("/v1/artifacts/:artifact_id/lineage", h.GetLineage)
	e.GET("/v1/artifacts", h.ListArtifacts)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// statusFor maps domain errors onto HTTP status codes. Definition
// problems are the caller's fault, an open breaker is a temporary
// condition the caller should retry later.
func statusFor(err error) int {
	var defErr *domain.DefinitionError
	if errors.As(err, &defErr) {
		return http.StatusBadRequest
	}
	var openErr *domain.CircuitOpenError
	if errors.As(err, &openErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c echo.Context, err error) error {
	return c.JSON(statusFor(err), map[string]string{"error": err.Error()})
}
