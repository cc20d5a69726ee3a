package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// UserStore defines the interface for user data persistence. Account
// management lives elsewhere; this service reads users and bootstraps the
// first administrator.
type UserStore interface {
	// Create saves a new user.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Exists reports whether a user with the given ID exists.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// ExistsWithRole reports whether at least one user has the role.
	ExistsWithRole(ctx context.Context, role string) (bool, error)

	// WithTx returns a UserStore that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
