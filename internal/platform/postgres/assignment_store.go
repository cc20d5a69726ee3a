package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// PostgresAssignmentStore implements the store.AssignmentStore interface.
type PostgresAssignmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAssignmentStore creates a new PostgreSQL implementation of the AssignmentStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresAssignmentStore(db store.DBTX, logger *slog.Logger) *PostgresAssignmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAssignmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "assignment_store")),
	}
}

var _ store.AssignmentStore = (*PostgresAssignmentStore)(nil)

// Create implements store.AssignmentStore.Create
func (s *PostgresAssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := a.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_assignments (id, task_id, user_id, assigned_at)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.TaskID, a.UserID, a.AssignedAt)
	if err != nil {
		switch {
		case IsUniqueViolation(err):
			log.Info("duplicate assignment",
				slog.String("task_id", a.TaskID.String()),
				slog.String("user_id", a.UserID.String()))
			return MapError(err)
		case IsForeignKeyViolation(err):
			log.Warn("assignment references missing task or user",
				slog.String("task_id", a.TaskID.String()),
				slog.String("user_id", a.UserID.String()))
			return MapError(err)
		}
		log.Error("failed to create assignment",
			slog.String("error", err.Error()),
			slog.String("task_id", a.TaskID.String()))
		return MapError(err)
	}

	log.Debug("assignment created",
		slog.String("task_id", a.TaskID.String()),
		slog.String("user_id", a.UserID.String()))
	return nil
}

// Get implements store.AssignmentStore.Get
func (s *PostgresAssignmentStore) Get(ctx context.Context, taskID, userID uuid.UUID) (*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var a domain.Assignment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, user_id, assigned_at
		FROM task_assignments
		WHERE task_id = $1 AND user_id = $2
	`, taskID, userID).Scan(&a.ID, &a.TaskID, &a.UserID, &a.AssignedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAssignmentNotFound
		}
		log.Error("failed to get assignment",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}
	return &a, nil
}

// Delete implements store.AssignmentStore.Delete
func (s *PostgresAssignmentStore) Delete(ctx context.Context, taskID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM task_assignments WHERE task_id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		log.Error("failed to delete assignment",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}
	if err := checkRowsAffected(result, store.ErrAssignmentNotFound); err != nil {
		return err
	}

	log.Debug("assignment deleted",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// ListByTask implements store.AssignmentStore.ListByTask
func (s *PostgresAssignmentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, user_id, assigned_at
		FROM task_assignments
		WHERE task_id = $1
		ORDER BY assigned_at ASC, id ASC
	`, taskID)
	if err != nil {
		log.Error("failed to list assignments",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// WithTx implements store.AssignmentStore.WithTx
func (s *PostgresAssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore {
	return &PostgresAssignmentStore{
		db:     tx,
		logger: s.logger,
	}
}
