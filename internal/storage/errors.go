package storage

import "errors"

var (
	// ErrJobNotFound is returned when a job row does not exist
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTableName is returned when a configured table name is not a plain SQL identifier
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrInvalidInterval is returned when a job is enqueued with a non-positive interval
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrEmptyHandler is returned when a job is enqueued without a handler declaration
	ErrEmptyHandler = errors.New("handler is required")

	// ErrInvalidPayload is returned when a payload cannot be serialized as JSON
	ErrInvalidPayload = errors.New("invalid payload")
)
