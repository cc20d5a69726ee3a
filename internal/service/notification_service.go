package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// NotificationService reads and maintains archived notifications.
type NotificationService interface {
	// List returns the caller's latest notifications, newest first.
	List(ctx context.Context, callerID uuid.UUID) ([]*domain.Notification, error)

	// MarkRead flags one of the caller's notifications as read.
	MarkRead(ctx context.Context, notificationID, callerID uuid.UUID) error

	// Prune deletes read notifications older than retention.
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type notificationServiceImpl struct {
	notifications store.NotificationStore
	now           func() time.Time
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(notifications store.NotificationStore, logger *slog.Logger) (NotificationService, error) {
	if notifications == nil {
		return nil, domain.NewValidationError("notifications", "cannot be nil", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &notificationServiceImpl{
		notifications: notifications,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "notification_service")),
	}, nil
}

// List implements NotificationService.List
func (s *notificationServiceImpl) List(ctx context.Context, callerID uuid.UUID) ([]*domain.Notification, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	list, err := s.notifications.ListForUser(ctx, callerID)
	if err != nil {
		return nil, NewServiceError("notification", "list", "failed to list notifications", err)
	}
	return list, nil
}

// MarkRead implements NotificationService.MarkRead
func (s *notificationServiceImpl) MarkRead(ctx context.Context, notificationID, callerID uuid.UUID) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	if err := s.notifications.MarkRead(ctx, notificationID, callerID); err != nil {
		return NewServiceError("notification", "mark_read", "failed to mark notification read", err)
	}
	return nil
}

// Prune implements NotificationService.Prune
func (s *notificationServiceImpl) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, domain.NewValidationError("retention", "must be positive", nil)
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	cutoff := s.now().UTC().Add(-retention)
	n, err := s.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, NewServiceError("notification", "prune", "failed to prune notifications", err)
	}
	log.Info("pruned read notifications",
		slog.Int64("deleted", n),
		slog.Time("cutoff", cutoff))
	return n, nil
}
