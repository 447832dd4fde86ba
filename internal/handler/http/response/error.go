package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/analytics"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Analytics domain errors
	case errors.Is(err, analytics.ErrInvalidDate):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, analytics.ErrInvalidHeadcount):
		BadRequest(w, err.Error(), nil)

	// Recalculation domain errors
	case errors.Is(err, recalculation.ErrProgressNotFound):
		NotFound(w, "Recalculation not found")
	case errors.Is(err, recalculation.ErrRunInProgress):
		Conflict(w, "A recalculation is already running")
	case errors.Is(err, recalculation.ErrCheckpointScopeMismatch):
		Conflict(w, err.Error())
	case errors.Is(err, recalculation.ErrInvalidDateRange):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, recalculation.ErrRunnerStopped):
		ServiceUnavailable(w, "Server is shutting down")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
