package task

import "errors"

// Common errors
var (
	ErrEmptyJobID        = errors.New("job ID cannot be empty")
	ErrMissingDependency = errors.New("task dependency cannot be nil")
	ErrUnknownTaskType   = errors.New("unknown task type")
)
