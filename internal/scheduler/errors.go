package scheduler

import "errors"

var (
	// ErrCyclePanic wraps a panic that escaped a poll cycle
	ErrCyclePanic = errors.New("panic in poll cycle")

	// ErrHandlerPanic wraps a panic raised by a job handler
	ErrHandlerPanic = errors.New("panic in job handler")
)
