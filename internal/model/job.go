package model

import (
	"encoding/json"
	"time"
)

// JobStatus represents whether a job takes part in polling
type JobStatus int

const (
	JobStatusInactive JobStatus = 0
	JobStatusActive   JobStatus = 1
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusActive:
		return "active"
	case JobStatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Job represents one recurring task row in the crontab table
type Job struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Handler     string          `json:"handler"`
	Payload     json.RawMessage `json:"payload"`
	IntervalSec int64           `json:"interval_sec"`
	Status      JobStatus       `json:"status"`

	// Timing fields
	NextExecuteTime time.Time  `json:"next_execute_time"`
	LastExecuteTime *time.Time `json:"last_execute_time,omitempty"`
	CreateTime      time.Time  `json:"create_time"`
	UpdateTime      time.Time  `json:"update_time"`
}

// Interval returns the job period as a duration
func (j *Job) Interval() time.Duration {
	return time.Duration(j.IntervalSec) * time.Second
}
