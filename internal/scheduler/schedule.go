package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/t77yq/crontab/internal/model"
)

// NextExecuteTime advances the job's previous due time by exactly its
// interval. It is based on the scheduled time, not on when the run
// happened, so slow handlers do not make the schedule drift.
func NextExecuteTime(job *model.Job) time.Time {
	if job.IntervalSec <= 0 {
		return job.NextExecuteTime
	}
	return cron.Every(job.Interval()).Next(job.NextExecuteTime)
}
