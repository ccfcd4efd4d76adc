// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers check these with errors.Is.
var (
	// ErrValidation is returned when input fails validation. No record is created.
	ErrValidation = errors.New("validation failed")

	// ErrPreconditionFailed is returned when an operation requires a prior state
	// that does not hold, e.g. exporting a generation that has not completed.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrDependencyMissing is returned when a referenced entity vanished between steps.
	ErrDependencyMissing = errors.New("dependency missing")

	// ErrCapabilityFailure is returned when an external generator or renderer
	// failed or timed out.
	ErrCapabilityFailure = errors.New("capability failure")

	// ErrNotFound is returned when the queried entity does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when the queried entity is past its TTL.
	ErrExpired = errors.New("expired")

	// ErrStorageFailure is returned when blob or record I/O failed.
	ErrStorageFailure = errors.New("storage failure")

	// ErrInvalidID is returned when an ID is malformed or empty.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when no authenticated user is present.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field. err may be nil, in
// which case the error only matches ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match both ErrValidation and the specific cause.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil || errors.Is(e.Err, ErrValidation) {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// SafeMessage returns a message suitable for API clients.
func (e *ValidationError) SafeMessage() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}
