package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/service"
	"github.com/phrazzld/exercise-api/internal/service/auth"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, auth.ErrAdminKeyMismatch):
		return http.StatusForbidden

	// Not found errors, including expired downloads
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrExpired):
		return http.StatusNotFound

	// State conflicts
	case errors.Is(err, domain.ErrPreconditionFailed):
		return http.StatusConflict

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.SafeMessage()

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken):
		return "Authentication required"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, auth.ErrAdminKeyMismatch):
		return "Invalid admin key"

	case errors.Is(err, service.ErrGenerationNotFound):
		return "Generation not found"

	case errors.Is(err, service.ErrDownloadExpired):
		return "Download has expired"

	case errors.Is(err, service.ErrDownloadNotFound):
		return "Download not found"

	case errors.Is(err, domain.ErrNotFound):
		return "Not found"

	case errors.Is(err, service.ErrGenerationNotReady):
		return "Generation is not ready"

	case errors.Is(err, service.ErrDownloadNotReady):
		return "Download is not ready"

	case errors.Is(err, service.ErrDownloadFailed):
		return "Export failed"

	case errors.Is(err, domain.ErrPreconditionFailed):
		return "Operation not allowed in the current state"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the error response for err. defaultMsg replaces the
// generic message of unexpected (500) errors when not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
