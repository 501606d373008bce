// Package scheduler runs the crontab poll loop: fetch due jobs, dispatch
// each one, reschedule it and sleep until the next job is due.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/crontab/internal/executor"
	"github.com/t77yq/crontab/internal/model"
	"github.com/t77yq/crontab/internal/monitor"
)

const recordTimeout = 5 * time.Second

// LoopConfig configures the poll loop. Zero values fall back to defaults.
type LoopConfig struct {
	// Sleep is the idle time after an empty cycle and the sleep ceiling
	Sleep time.Duration

	// Backoff is the pause after a failed job or cycle
	Backoff time.Duration

	// Reporter receives unexpected errors; nil logs them
	Reporter monitor.ErrorReporter

	// History and Publisher are optional run sinks
	History   RunRecorder
	Publisher RunPublisher

	// Now and Wait override the clock
	Now  func() time.Time
	Wait func(ctx context.Context, d time.Duration) error
}

// CycleResult summarizes one poll cycle
type CycleResult struct {
	Due       int
	Succeeded int
	Failed    int
	Skipped   int

	// Sleep is how long to idle before the next cycle
	Sleep time.Duration

	// Stop is set when the guard ended the cycle early
	Stop monitor.StopReason

	// Err is set when the cycle itself failed
	Err error
}

// Loop is the single-threaded crontab poll loop
type Loop struct {
	logger     *zap.Logger
	store      JobStore
	dispatcher Dispatcher
	guard      Guard
	planner    *SleepPlanner
	backoff    time.Duration
	reporter   monitor.ErrorReporter
	history    RunRecorder
	publisher  RunPublisher
	now        func() time.Time
	wait       func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a poll loop
func NewLoop(store JobStore, dispatcher Dispatcher, guard Guard, config LoopConfig, logger *zap.Logger) *Loop {
	if config.Sleep <= 0 {
		config.Sleep = DefaultSleep
	}
	if config.Backoff <= 0 {
		config.Backoff = DefaultBackoff
	}
	if config.Reporter == nil {
		config.Reporter = monitor.NewLogReporter(logger)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Wait == nil {
		config.Wait = sleepContext
	}

	return &Loop{
		logger:     logger.Named("loop"),
		store:      store,
		dispatcher: dispatcher,
		guard:      guard,
		planner:    NewSleepPlanner(config.Sleep),
		backoff:    config.Backoff,
		reporter:   config.Reporter,
		history:    config.History,
		publisher:  config.Publisher,
		now:        config.Now,
		wait:       config.Wait,
	}
}

// Run polls until the guard asks for a restart or ctx is cancelled. The
// returned reason tells the supervisor why the loop ended; an error means
// the loop could not start.
func (l *Loop) Run(ctx context.Context) (monitor.StopReason, error) {
	if err := l.guard.Start(ctx); err != nil {
		return monitor.StopNone, fmt.Errorf("failed to start restart monitor: %w", err)
	}

	l.logger.Info("crontab is started successfully",
		zap.Duration("sleep", l.planner.Default()),
		zap.Duration("backoff", l.backoff))

	for {
		if ctx.Err() != nil {
			return l.stop(monitor.StopShutdown), nil
		}

		result := l.RunCycle(ctx)
		if result.Stop != monitor.StopNone {
			return l.stop(result.Stop), nil
		}

		wait := result.Sleep
		if result.Err != nil {
			l.logger.Error("Poll cycle failed", zap.Error(result.Err))
			l.reporter.Report(ctx, result.Err)
			wait = l.backoff
		} else if result.Due > 0 {
			l.logger.Debug("Poll cycle finished",
				zap.Int("due", result.Due),
				zap.Int("succeeded", result.Succeeded),
				zap.Int("failed", result.Failed),
				zap.Int("skipped", result.Skipped),
				zap.Duration("sleep", wait))
		}

		if err := l.wait(ctx, wait); err != nil {
			return l.stop(monitor.StopShutdown), nil
		}
	}
}

// RunCycle fetches due jobs and processes them in order. Each job is
// rescheduled whatever the outcome of its handler. The guard is consulted
// before every job; when it asks to stop, the remaining jobs stay due.
func (l *Loop) RunCycle(ctx context.Context) (result CycleResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CycleResult{Err: fmt.Errorf("%w: %v", ErrCyclePanic, r)}
		}
	}()

	now := l.now()
	jobs, err := l.store.FetchDue(ctx, now)
	if err != nil {
		result.Err = err
		return result
	}
	result.Due = len(jobs)

	next := make([]time.Time, 0, len(jobs))
	for _, job := range jobs {
		reason, err := l.guard.Check(ctx)
		if err != nil {
			result.Err = fmt.Errorf("restart check failed: %w", err)
			return result
		}
		if reason != monitor.StopNone {
			result.Stop = reason
			return result
		}
		if ctx.Err() != nil {
			result.Stop = monitor.StopShutdown
			return result
		}

		nextAt := NextExecuteTime(job)
		run := l.execute(ctx, job)

		// The reschedule must land even when shutdown began mid-handler.
		if err := l.store.Reschedule(context.WithoutCancel(ctx), job.ID, now, nextAt); err != nil {
			result.Err = err
			return result
		}
		next = append(next, nextAt)

		switch run.Status {
		case model.RunStatusSucceeded:
			result.Succeeded++
		case model.RunStatusSkipped:
			result.Skipped++
		case model.RunStatusFailed:
			result.Failed++
			// Cancellation is picked up by the next checkpoint.
			_ = l.wait(ctx, l.backoff)
		}
	}

	result.Sleep = l.planner.Compute(l.now(), next)
	return result
}

// execute dispatches one job and records the outcome
func (l *Loop) execute(ctx context.Context, job *model.Job) *model.Run {
	run := &model.Run{
		ID:        uuid.New().String(),
		JobID:     job.ID,
		JobName:   job.Name,
		Handler:   job.Handler,
		StartedAt: l.now(),
	}

	l.logger.Debug("Executing job",
		zap.String("job_id", job.ID),
		zap.String("name", job.Name),
		zap.String("handler", job.Handler))

	err := l.dispatch(ctx, job)
	run.FinishedAt = l.now()
	run.Duration = run.FinishedAt.Sub(run.StartedAt)

	switch {
	case err == nil:
		run.Status = model.RunStatusSucceeded
	case errors.Is(err, executor.ErrHandlerNotFound):
		run.Status = model.RunStatusSkipped
		run.Error = err.Error()
		l.logger.Warn("No handler registered for job",
			zap.String("job_id", job.ID),
			zap.String("name", job.Name),
			zap.String("handler", job.Handler))
	default:
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		l.logger.Error("Job failed",
			zap.String("job_id", job.ID),
			zap.String("name", job.Name),
			zap.String("handler", job.Handler),
			zap.Error(err))
		l.reporter.Report(ctx, fmt.Errorf("job %s (%s): %w", job.Name, job.ID, err))
	}

	l.recordRun(ctx, run)
	return run
}

// dispatch invokes the job's handler and turns a panic into an error
func (l *Loop) dispatch(ctx context.Context, job *model.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return l.dispatcher.Dispatch(ctx, job.Handler, job.Payload)
}

func (l *Loop) recordRun(ctx context.Context, run *model.Run) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if l.history != nil {
		if err := l.history.Record(ctx, run); err != nil {
			l.logger.Warn("Failed to record run", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, run); err != nil {
			l.logger.Warn("Failed to publish run", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
}

func (l *Loop) stop(reason monitor.StopReason) monitor.StopReason {
	l.logger.Info("crontab is stopping", zap.Stringer("reason", reason))
	return reason
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
