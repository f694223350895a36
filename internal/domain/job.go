package domain

import (
	"encoding/json"
	"time"
)

// Job represents a single asynchronous work item. A job is created by a
// caller, mutated only by the worker that claims it, and immutable once
// it reaches a terminal status.
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Options     json.RawMessage `json:"options,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
