package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create saves a new task.
	Create(ctx context.Context, task *domain.Task) error

	// GetOwned retrieves a task owned by ownerID.
	// Returns ErrTaskNotFound if the task does not exist or has another owner.
	GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// GetOwnedForUpdate is GetOwned with a row lock held until the
	// surrounding transaction ends. Only meaningful inside WithTx.
	GetOwnedForUpdate(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// GetVisible retrieves a task that userID owns or is assigned to.
	// Returns ErrTaskNotFound otherwise.
	GetVisible(ctx context.Context, id, userID uuid.UUID) (*domain.Task, error)

	// List returns one page of tasks for userID ordered by creation time,
	// newest first, together with the total number of matching tasks.
	// The query must already be normalized.
	List(ctx context.Context, userID uuid.UUID, q domain.TaskQuery) ([]*domain.Task, int, error)

	// Update persists every mutable field of task. When expectedVersion is
	// non-zero the stored version must match, otherwise ErrVersionMismatch.
	// Returns ErrTaskNotFound if the task does not exist for its owner.
	Update(ctx context.Context, task *domain.Task, expectedVersion int) error

	// Delete removes a task owned by ownerID. Assignments are removed with it.
	// Returns ErrTaskNotFound if nothing was deleted.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error

	// WithTx returns a TaskStore that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
