package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// SessionRegisterRequest is the request to register a research session.
type SessionRegisterRequest struct {
	ExternalID string `json:"external_id"`
	Query      string `json:"query"`
}

// DocumentRegisterRequest is the request to register a document.
type DocumentRegisterRequest struct {
	SessionID  string `json:"session_id"`
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
}

// AudioRegisterRequest is the request to register an audio artifact.
type AudioRegisterRequest struct {
	DocumentID  string `json:"document_id"`
	ProviderRef string `json:"provider_ref"`
	Title       string `json:"title"`
}

// RegisterSession registers a new root session.
// POST /v1/artifacts/sessions
func (h *Handler) RegisterSession(c echo.Context) error {
	var req SessionRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	id, err := h.artifacts.RegisterSession(req.ExternalID, req.Query)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

// RegisterDocument registers a document under a session.
// POST /v1/artifacts/documents
func (h *Handler) RegisterDocument(c echo.Context) error {
	var req DocumentRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}

	id, err := h.artifacts.RegisterDocument(req.SessionID, req.ExternalID, req.Title)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

// RegisterAudio registers an audio artifact under a document.
// POST /v1/artifacts/audio
func (h *Handler) RegisterAudio(c echo.Context) error {
	var req AudioRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.DocumentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "document_id is required"})
	}

	id, err := h.artifacts.RegisterAudio(req.DocumentID, req.ProviderRef, req.Title)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

// GetArtifact gets a single artifact entry.
// GET /v1/artifacts/:artifact_id
func (h *Handler) GetArtifact(c echo.Context) error {
	entry := h.artifacts.Get(c.Param("artifact_id"))
	if entry == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "artifact not found"})
	}
	return c.JSON(http.StatusOK, entry)
}

// GetLineage walks an artifact's parent chain up to the root session.
// GET /v1/artifacts/:artifact_id/lineage
func (h *Handler) GetLineage(c echo.Context) error {
	lineage := h.artifacts.GetLineage(c.Param("artifact_id"))
	if lineage == nil {
		lineage = []domain.ArtifactEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"lineage": lineage,
	})
}

// ListArtifacts lists artifacts of one type.
// GET /v1/artifacts?type=session
func (h *Handler) ListArtifacts(c echo.Context) error {
	t := domain.ArtifactType(c.QueryParam("type"))
	switch t {
	case domain.ArtifactTypeSession, domain.ArtifactTypeDocument, domain.ArtifactTypeAudio:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "type must be session, document or audio"})
	}
	entries := h.artifacts.ListByType(t)
	if entries == nil {
		entries = []domain.ArtifactEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"artifacts": entries,
	})
}
