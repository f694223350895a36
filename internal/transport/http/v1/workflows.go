package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// WorkflowExecuteRequest is the request to run a workflow.
type WorkflowExecuteRequest struct {
	Inputs map[string]any `json:"inputs,omitempty"`
}

// ListWorkflows lists the loaded workflow names.
// GET /v1/workflows
func (h *Handler) ListWorkflows(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflows": h.workflows.Workflows(),
	})
}

// ExecuteWorkflow runs a named workflow to completion.
// POST /v1/workflows/:name/execute
func (h *Handler) ExecuteWorkflow(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	var req WorkflowExecuteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	exec, err := h.workflows.Execute(ctx, name, req.Inputs)
	if err != nil {
		// A failed execution still carries useful state; surface it
		// alongside the error for callers that want partial results. The
		// status follows the error kind either way, so a definition
		// problem raised mid-run is still a 400.
		if exec != nil {
			return c.JSON(statusFor(err), map[string]interface{}{
				"error":     err.Error(),
				"execution": exec,
			})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, exec)
}

// GetExecution gets a workflow execution by ID.
// GET /v1/executions/:execution_id
func (h *Handler) GetExecution(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("execution_id")

	exec, err := h.workflows.GetExecution(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if exec == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "execution not found"})
	}
	return c.JSON(http.StatusOK, exec)
}
