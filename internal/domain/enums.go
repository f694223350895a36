// Package domain defines the core models for the orchestration core.
package domain

// JobStatus represents the lifecycle status of a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ExecutionStatus represents the status of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// StepStatus represents the status of a single step execution.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// ArtifactType represents the kind of a registered artifact.
type ArtifactType string

const (
	ArtifactTypeSession  ArtifactType = "session"
	ArtifactTypeDocument ArtifactType = "document"
	ArtifactTypeAudio    ArtifactType = "audio"
)

// IsTerminalJobStatus reports whether a job status is terminal.
func IsTerminalJobStatus(status JobStatus) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}
