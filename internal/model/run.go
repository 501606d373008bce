package model

import "time"

// RunStatus represents the outcome of a single dispatch attempt
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	// RunStatusSkipped means no handler was registered for the job
	RunStatusSkipped RunStatus = "skipped"
)

// Run represents one attempt of a job within a poll cycle
type Run struct {
	ID         string        `json:"id"`
	JobID      string        `json:"job_id"`
	JobName    string        `json:"job_name"`
	Handler    string        `json:"handler"`
	Status     RunStatus     `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}
