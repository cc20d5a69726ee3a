package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// ArchivingPublisher stores one notification per recipient so users can
// read events they missed while offline. Topic-only listeners get nothing
// archived.
type ArchivingPublisher struct {
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewArchivingPublisher creates an ArchivingPublisher.
func NewArchivingPublisher(notifications store.NotificationStore, logger *slog.Logger) (*ArchivingPublisher, error) {
	if notifications == nil {
		return nil, domain.NewValidationError("notifications", "cannot be nil", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchivingPublisher{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_archive")),
	}, nil
}

// Publish implements Publisher.
func (p *ArchivingPublisher) Publish(ctx context.Context, msg Message) error {
	recipients := uniqueRecipients(msg.Recipients)
	if len(recipients) == 0 {
		return nil
	}

	text := msg.Summary
	if text == "" {
		text = msg.Event.Type
	}
	taskID := msg.TaskID
	rows := make([]*domain.Notification, 0, len(recipients))
	for _, userID := range recipients {
		n := domain.NewNotification(userID, msg.Event.Type, &taskID, text)
		n.CreatedAt = msg.Event.CreatedAt
		rows = append(rows, n)
	}

	if err := p.notifications.CreateMany(ctx, rows); err != nil {
		return fmt.Errorf("failed to archive %s event: %w", msg.Event.Type, err)
	}

	logger.FromContextOrDefault(ctx, p.logger).Debug("archived notifications",
		slog.String("event_type", msg.Event.Type),
		slog.Int("count", len(rows)))
	return nil
}
