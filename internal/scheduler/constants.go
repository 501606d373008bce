package scheduler

import "time"

const (
	// DefaultSleep is the idle time when a cycle found no due jobs
	DefaultSleep = 60 * time.Second

	// MinSleep keeps the loop from spinning when a job is about to be due
	MinSleep = 3 * time.Second

	// DefaultBackoff is the fixed pause after a failed job or cycle
	DefaultBackoff = 3 * time.Second

	// DefaultIntervalSec is the period given to jobs pushed without one
	DefaultIntervalSec = 60

	// DefaultResultSubject prefixes run result messages; the job ID is appended
	DefaultResultSubject = "crontab.result"
)
