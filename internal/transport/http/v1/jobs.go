package v1

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// JobCreateRequest is the request to enqueue a job.
type JobCreateRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Options json.RawMessage `json:"options,omitempty"`
}

// CreateJob enqueues a new asynchronous job.
// POST /v1/jobs
func (h *Handler) CreateJob(c echo.Context) error {
	ctx := c.Request().Context()

	var req JobCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Type == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "type is required"})
	}

	job, err := h.jobs.AddJob(ctx, req.Type, req.Payload, req.Options)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, job)
}

// GetJob gets a job by ID.
// GET /v1/jobs/:job_id
func (h *Handler) GetJob(c echo.Context) error {
	ctx := c.Request().Context()
	jobID := c.Param("job_id")

	job, err := h.jobs.GetJob(ctx, jobID)
	if err != nil {
		return writeError(c, err)
	}
	if job == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}
	return c.JSON(http.StatusOK, job)
}

// ListJobs lists jobs, optionally filtered by status and type.
// GET /v1/jobs?status=queued&type=research.query&limit=50
func (h *Handler) ListJobs(c echo.Context) error {
	ctx := c.Request().Context()

	status := domain.JobStatus(c.QueryParam("status"))
	jobType := c.QueryParam("type")
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = parsed
	}

	jobs, err := h.jobs.ListJobs(ctx, status, jobType, limit)
	if err != nil {
		return writeError(c, err)
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs": jobs,
	})
}
