package scheduler

import (
	"context"
	"time"

	"github.com/t77yq/crontab/internal/model"
	"github.com/t77yq/crontab/internal/monitor"
)

// JobStore defines the persistence the loop needs
type JobStore interface {
	// FetchDue returns active jobs with next_execute_time <= now
	FetchDue(ctx context.Context, now time.Time) ([]*model.Job, error)

	// Reschedule sets last_execute_time = now and next_execute_time = next
	Reschedule(ctx context.Context, id string, now, next time.Time) error

	// Enqueue inserts a new active job that is due immediately
	Enqueue(ctx context.Context, name, handler string, payload interface{}, intervalSec int64) (string, error)
}

// Dispatcher invokes the handler named by a job declaration
type Dispatcher interface {
	Dispatch(ctx context.Context, declaration string, payload []byte) error
}

// Guard decides whether the loop must stop before the next job
type Guard interface {
	// Start captures the state later checks compare against
	Start(ctx context.Context) error

	// Check returns monitor.StopNone while the loop may continue
	Check(ctx context.Context) (monitor.StopReason, error)
}

// RunRecorder stores the outcome of each dispatch attempt
type RunRecorder interface {
	Record(ctx context.Context, run *model.Run) error
}

// RunPublisher broadcasts the outcome of each dispatch attempt
type RunPublisher interface {
	Publish(ctx context.Context, run *model.Run) error
}

// Push enqueues a job with the default interval
func Push(ctx context.Context, store JobStore, name, handler string, payload interface{}) (string, error) {
	return store.Enqueue(ctx, name, handler, payload, DefaultIntervalSec)
}
