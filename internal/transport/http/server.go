// Package http provides the HTTP server for the orchestration core.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	v1 "github.com/simik394/osobni-wf-sub002/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server.
func NewServer(jobs v1.JobService, workflows v1.WorkflowService, artifacts v1.ArtifactService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	handler := v1.NewHandler(jobs, workflows, artifacts)
	handler.RegisterRoutes(e)

	return e
}
