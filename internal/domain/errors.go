package domain

import (
	"fmt"
	"net/http"
	"time"
)

// NetworkError indicates the persistent store could not be reached after
// the configured number of connection attempts.
type NetworkError struct {
	Host     string
	Port     int
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to connect to store at %s:%d after %d attempts: %v", e.Host, e.Port, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CircuitOpenError is returned when the circuit breaker rejects a call
// without attempting it. Callers should back off and retry later.
type CircuitOpenError struct {
	Since time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open since %s", e.Since.Format(time.RFC3339))
}

// DefinitionError indicates a workflow definition problem: an unknown
// workflow name, a cyclic dependency graph, or an unresolvable parameter
// reference. It can never succeed on retry.
type DefinitionError struct {
	Workflow string
	Step     string
	Reason   string
}

func (e *DefinitionError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("workflow %q step %q: %s", e.Workflow, e.Step, e.Reason)
	}
	return fmt.Sprintf("workflow %q: %s", e.Workflow, e.Reason)
}

// StepExecutionError indicates a capability-provider action failed or
// timed out. It fails the step and the enclosing execution; the engine
// never retries it.
type StepExecutionError struct {
	Workflow    string
	ExecutionID string
	StepID      string
	Err         error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("workflow %q execution %s step %q failed: %v", e.Workflow, e.ExecutionID, e.StepID, e.Err)
}

func (e *StepExecutionError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from an external orchestration API.
type APIError struct {
	Status int
	URL    string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api call to %s returned status %d: %s", e.URL, e.Status, e.Body)
}

// Retryable reports whether the call may succeed on a later attempt.
// 429 and 5xx are retryable; other 4xx are not.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}
