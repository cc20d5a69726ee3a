package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// MapErrorToStatusCode maps an error category to an HTTP status code so
// internal error types never reach clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case domain.IsValidationError(err), errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var ve *domain.ValidationError
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Authentication required"

	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case domain.IsValidationError(err):
		return "Invalid request"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrAssignmentNotFound):
		return "Assignment not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrNotificationNotFound):
		return "Notification not found"
	case errors.Is(err, domain.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrVersionMismatch):
		return "Task was modified by another request"
	case errors.Is(err, store.ErrAlreadyAssigned):
		return "User is already assigned to this task"
	case errors.Is(err, domain.ErrConflict):
		return "Request conflicts with the current state"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the response for a failed request. defaultMsg, when
// set, replaces the generic message of 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var ve *domain.ValidationError
	if status == http.StatusBadRequest && errors.As(err, &ve) && ve.Field != "" {
		shared.RespondWithFieldError(w, r, status, message, ve.Field)
		return
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// HandleValidationError responds 400 to a request that failed decoding or
// struct validation.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		shared.RespondWithFieldError(w, r, http.StatusBadRequest, ve.Error(), ve.Field)
	case errors.As(err, &validationErrs):
		shared.RespondWithFieldError(w, r, http.StatusBadRequest,
			SanitizeValidationError(validationErrs), validationErrs[0].Field())
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
	}
}

// SanitizeValidationError renders the first validator failure without
// echoing the rejected value.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "uuid", "uuid4":
		return "invalid identifier"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
