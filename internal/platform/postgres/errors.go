package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is raised when an insert or update breaks a UNIQUE constraint
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is raised when a referenced row does not exist
	foreignKeyViolationCode = "23503"

	// checkViolationCode is raised when a CHECK constraint rejects a row
	checkViolationCode = "23514"

	// notNullViolationCode is raised when a NOT NULL column receives NULL
	notNullViolationCode = "23502"
)

// Constraint names from the migrations. Unnamed constraints use the
// PostgreSQL defaults (<table>_<column>_key, <table>_<column>_fkey).
const (
	usersEmailKey           = "users_email_key"
	assignmentTaskUserKey   = "uq_task_assignments_task_user"
	tasksOwnerFKey          = "tasks_owner_id_fkey"
	assignmentsTaskFKey     = "task_assignments_task_id_fkey"
	assignmentsUserFKey     = "task_assignments_user_id_fkey"
	notificationsUserIDFKey = "notifications_user_id_fkey"
)

// uniqueConstraintErrors names the duplicate each unique constraint guards.
var uniqueConstraintErrors = map[string]error{
	usersEmailKey:         store.ErrEmailExists,
	assignmentTaskUserKey: store.ErrAlreadyAssigned,
}

// foreignKeyErrors names the entity that is missing when a reference fails.
var foreignKeyErrors = map[string]error{
	tasksOwnerFKey:          store.ErrUserNotFound,
	assignmentsTaskFKey:     store.ErrTaskNotFound,
	assignmentsUserFKey:     store.ErrUserNotFound,
	notificationsUserIDFKey: store.ErrUserNotFound,
}

// MapError maps a database error to a store error. Known constraints map to
// the specific sentinel (ErrAlreadyAssigned, ErrEmailExists, ErrTaskNotFound,
// ErrUserNotFound); other violations map to the generic ErrDuplicate or
// ErrInvalidEntity. The driver error stays in the message for logs. Unknown
// errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		if sentinel, ok := uniqueConstraintErrors[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %v", sentinel, err)
		}
		return fmt.Errorf("%w: unique violation (%s): %v", store.ErrDuplicate, pgErr.ConstraintName, err)
	case foreignKeyViolationCode:
		if sentinel, ok := foreignKeyErrors[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %v", sentinel, err)
		}
		return fmt.Errorf("%w: foreign key violation (%s): %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case checkViolationCode:
		return fmt.Errorf("%w: check constraint violation (%s): %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: not null violation (%s): %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolationCode)
}

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolationCode)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// checkRowsAffected returns notFound when an UPDATE or DELETE touched no rows.
func checkRowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
