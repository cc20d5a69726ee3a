package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

const taskColumns = `t.id, t.title, t.description, t.due_date, t.priority, t.status,
		t.owner_id, t.created_at, t.updated_at, t.version`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, title, description, due_date, priority, status,
			owner_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		string(task.Priority),
		task.Status,
		task.OwnerID,
		task.CreatedAt,
		task.UpdatedAt,
		task.Version,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("owner does not exist",
				slog.String("task_id", task.ID.String()),
				slog.String("owner_id", task.OwnerID.String()))
			return MapError(err)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// GetOwned implements store.TaskStore.GetOwned
func (s *PostgresTaskStore) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1 AND t.owner_id = $2`
	return s.getOne(ctx, query, id, ownerID)
}

// GetOwnedForUpdate implements store.TaskStore.GetOwnedForUpdate
func (s *PostgresTaskStore) GetOwnedForUpdate(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1 AND t.owner_id = $2 FOR UPDATE`
	return s.getOne(ctx, query, id, ownerID)
}

// GetVisible implements store.TaskStore.GetVisible
func (s *PostgresTaskStore) GetVisible(ctx context.Context, id, userID uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t
		WHERE t.id = $1 AND (t.owner_id = $2 OR EXISTS (
			SELECT 1 FROM task_assignments a WHERE a.task_id = t.id AND a.user_id = $2))`
	return s.getOne(ctx, query, id, userID)
}

func (s *PostgresTaskStore) getOne(ctx context.Context, query string, id, userID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found",
				slog.String("task_id", id.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}
	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	q domain.TaskQuery,
) ([]*domain.Task, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args, err := buildTaskFilter(userID, q)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks t WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, MapError(err)
	}

	args = append(args, q.PageSize, q.Offset())
	listQuery := fmt.Sprintf(`SELECT %s FROM tasks t WHERE %s
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $%d OFFSET $%d`, taskColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0, q.PageSize)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, 0, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, 0, MapError(err)
	}

	log.Debug("tasks listed",
		slog.String("user_id", userID.String()),
		slog.String("scope", string(q.Scope)),
		slog.Int("count", len(tasks)),
		slog.Int("total", total))
	return tasks, total, nil
}

// buildTaskFilter renders the WHERE clause for a listing. The first
// placeholder is always the user ID.
func buildTaskFilter(userID uuid.UUID, q domain.TaskQuery) (string, []any, error) {
	var b strings.Builder
	args := []any{userID}

	switch q.Scope {
	case domain.ScopeOwned, "":
		b.WriteString("t.owner_id = $1")
	case domain.ScopeAssigned:
		b.WriteString("EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id = t.id AND a.user_id = $1)")
	default:
		return "", nil, store.NewStoreError("task", "list", "unknown scope "+string(q.Scope), store.ErrInvalidEntity)
	}

	if q.Status != "" {
		args = append(args, q.Status)
		fmt.Fprintf(&b, " AND t.status = $%d", len(args))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := len(args)
		fmt.Fprintf(&b, ` AND (t.title ILIKE $%d ESCAPE '\' OR t.description ILIKE $%d ESCAPE '\')`, n, n)
	}
	return b.String(), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task, expectedVersion int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, due_date = $3, priority = $4, status = $5,
			updated_at = $6, version = $7
		WHERE id = $8 AND owner_id = $9 AND ($10 = 0 OR version = $10)
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.DueDate,
		string(task.Priority),
		task.Status,
		task.UpdatedAt,
		task.Version,
		task.ID,
		task.OwnerID,
		expectedVersion,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := checkRowsAffected(result, store.ErrTaskNotFound); err != nil {
		if expectedVersion == 0 || !errors.Is(err, store.ErrTaskNotFound) {
			return err
		}
		// Tell a stale write apart from a missing row.
		if _, getErr := s.GetOwned(ctx, task.ID, task.OwnerID); getErr == nil {
			log.Info("task version mismatch",
				slog.String("task_id", task.ID.String()),
				slog.Int("expected_version", expectedVersion))
			return store.ErrVersionMismatch
		}
		return err
	}

	log.Debug("task updated",
		slog.String("task_id", task.ID.String()),
		slog.Int("version", task.Version))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	if err := checkRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var priority string
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&priority,
		&task.Status,
		&task.OwnerID,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.Version,
	)
	if err != nil {
		return nil, err
	}
	task.Priority = domain.Priority(priority)
	return &task, nil
}
