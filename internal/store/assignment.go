package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// AssignmentStore defines the interface for task assignment persistence.
type AssignmentStore interface {
	// Create saves an assignment.
	// Returns ErrAlreadyAssigned if the pair already exists.
	Create(ctx context.Context, a *domain.Assignment) error

	// Get retrieves the assignment of userID to taskID.
	// Returns ErrAssignmentNotFound if there is none.
	Get(ctx context.Context, taskID, userID uuid.UUID) (*domain.Assignment, error)

	// Delete removes the assignment of userID to taskID.
	// Returns ErrAssignmentNotFound if nothing was deleted.
	Delete(ctx context.Context, taskID, userID uuid.UUID) error

	// ListByTask returns the assignments of a task, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Assignment, error)

	// WithTx returns an AssignmentStore that uses the provided transaction.
	WithTx(tx *sql.Tx) AssignmentStore
}
