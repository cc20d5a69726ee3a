package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// PostgresNotificationStore implements the store.NotificationStore interface.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgreSQL implementation of the NotificationStore interface.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// CreateMany implements store.NotificationStore.CreateMany
func (s *PostgresNotificationStore) CreateMany(ctx context.Context, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	const cols = 7
	var b strings.Builder
	b.WriteString(`INSERT INTO notifications (id, user_id, kind, task_id, message, is_read, created_at) VALUES `)
	args := make([]any, 0, len(notifications)*cols)
	for i, n := range notifications {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * cols
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, n.ID, n.UserID, n.Kind, n.TaskID, n.Message, n.IsRead, n.CreatedAt)
	}

	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		log.Error("failed to archive notifications",
			slog.String("error", err.Error()),
			slog.Int("count", len(notifications)))
		return MapError(err)
	}
	return nil
}

// ListForUser implements store.NotificationStore.ListForUser
func (s *PostgresNotificationStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, task_id, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, store.MaxNotificationList)
	if err != nil {
		log.Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.TaskID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// MarkRead implements store.NotificationStore.MarkRead
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		log.Error("failed to mark notification read",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrNotificationNotFound)
}

// DeleteReadBefore implements store.NotificationStore.DeleteReadBefore
func (s *PostgresNotificationStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read AND created_at < $1`, cutoff)
	if err != nil {
		log.Error("failed to prune notifications", slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// WithTx implements store.NotificationStore.WithTx
func (s *PostgresNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &PostgresNotificationStore{
		db:     tx,
		logger: s.logger,
	}
}
