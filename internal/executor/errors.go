package executor

import "errors"

var (
	// ErrHandlerNotFound is returned when no handler is registered under an identifier
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrMethodNotFound is returned when a handler has no method with the requested name
	ErrMethodNotFound = errors.New("method not found")

	// ErrDuplicateHandler is returned when an identifier is registered twice
	ErrDuplicateHandler = errors.New("duplicate handler")

	// ErrInvalidHandler is returned for an empty handler declaration or identifier
	ErrInvalidHandler = errors.New("invalid handler")
)
