// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Error categories shared by every layer. Store and service errors wrap one of
// these so the API layer can map them with errors.Is regardless of origin.
var (
	// ErrValidation is returned when input is malformed or a required field
	// is missing. Callers can fix the request; it is never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when no entity is visible to the caller.
	// It deliberately covers "exists but belongs to someone else".
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with existing state,
	// such as a duplicate assignment or a stale version.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated is returned when the caller identity could not be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidID is returned when an ID is malformed or empty.
	ErrInvalidID = errors.New("invalid ID")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error so errors.Is(err, ErrValidation) holds.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for field. If err is nil the
// error wraps ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidID)
}
