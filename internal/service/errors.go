package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// ServiceError adds the failing operation to an error from a lower layer.
// The wrapped error keeps its category, so errors.Is(err, domain.ErrNotFound)
// still holds.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, operation, message string, err error) *ServiceError {
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// requireCaller rejects calls without a resolved identity.
func requireCaller(callerID uuid.UUID) error {
	if callerID == uuid.Nil {
		return domain.ErrUnauthenticated
	}
	return nil
}
