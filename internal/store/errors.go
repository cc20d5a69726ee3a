package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskhub-api/internal/domain"
)

// Common store errors used across all store implementations. The generic
// ones wrap the domain categories so callers can match either level.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store
	// or is not visible to the requesting user.
	ErrNotFound = fmt.Errorf("entity %w", domain.ErrNotFound)

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = fmt.Errorf("entity already exists: %w", domain.ErrConflict)

	// ErrInvalidEntity is returned when an entity violates a database
	// constraint. Check the wrapped error for details.
	ErrInvalidEntity = fmt.Errorf("invalid entity: %w", domain.ErrValidation)

	// ErrVersionMismatch is returned when an optimistic version check fails.
	ErrVersionMismatch = fmt.Errorf("version mismatch: %w", domain.ErrConflict)

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTaskNotFound indicates the task does not exist or is not visible.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrAssignmentNotFound indicates no assignment exists for the pair.
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment", ErrNotFound)

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrNotificationNotFound indicates the notification does not exist for the user.
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)

	// ErrAlreadyAssigned indicates the (task, user) pair already has an assignment.
	ErrAlreadyAssigned = fmt.Errorf("%w: assignment", ErrDuplicate)

	// ErrEmailExists indicates that a user with the given email already exists.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "task", "assignment")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
