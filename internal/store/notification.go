package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// MaxNotificationList is the number of notifications returned by ListForUser.
const MaxNotificationList = 50

// NotificationStore defines the interface for archived notifications.
type NotificationStore interface {
	// CreateMany saves notifications in one round trip.
	CreateMany(ctx context.Context, notifications []*domain.Notification) error

	// ListForUser returns the latest notifications of userID, newest first,
	// at most MaxNotificationList.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)

	// MarkRead flags a notification of userID as read.
	// Returns ErrNotificationNotFound if it does not belong to userID.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error

	// DeleteReadBefore removes read notifications created before cutoff and
	// returns how many were removed.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a NotificationStore that uses the provided transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
