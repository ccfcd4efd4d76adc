package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// Each one wraps an error from the domain taxonomy so that the API layer can
// map it to a status code with errors.Is.
var (
	// ErrGenerationNotFound indicates the generation does not exist or belongs to another user.
	ErrGenerationNotFound = fmt.Errorf("%w: generation", domain.ErrNotFound)

	// ErrDownloadNotFound indicates the download does not exist, belongs to
	// another user, or has already been swept.
	ErrDownloadNotFound = fmt.Errorf("%w: download", domain.ErrNotFound)

	// ErrGenerationNotReady indicates the generation has not completed.
	ErrGenerationNotReady = fmt.Errorf("%w: generation is not completed", domain.ErrPreconditionFailed)

	// ErrDownloadNotReady indicates the export file has not been rendered yet.
	ErrDownloadNotReady = fmt.Errorf("%w: download is not ready", domain.ErrPreconditionFailed)

	// ErrDownloadFailed indicates the export ended in failure and has no file.
	ErrDownloadFailed = fmt.Errorf("%w: export failed", domain.ErrPreconditionFailed)

	// ErrDownloadExpired indicates the download is past its expiry.
	ErrDownloadExpired = fmt.Errorf("%w: download", domain.ErrExpired)
)

// ServiceError wraps errors from the services with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_generation", "open_download")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Validation errors and store not-found errors are returned as their
// service-level sentinels without wrapping.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr
	case errors.Is(err, store.ErrGenerationNotFound):
		return ErrGenerationNotFound
	case errors.Is(err, store.ErrDownloadNotFound):
		return ErrDownloadNotFound
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
