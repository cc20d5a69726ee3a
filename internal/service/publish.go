package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/events"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
)

// notifier builds events and hands them to the publisher after a commit.
type notifier struct {
	publisher events.Publisher
	logger    *slog.Logger
}

// publish sends an event. It runs after the transaction committed, so the
// request context is detached: a client that disconnects now must not stop
// delivery. Failures are logged only.
func (n notifier) publish(
	ctx context.Context,
	kind string,
	payload any,
	taskID uuid.UUID,
	summary string,
	recipients []uuid.UUID,
	topic string,
) {
	log := logger.FromContextOrDefault(ctx, n.logger)

	event, err := events.NewEvent(kind, payload)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", kind),
			slog.String("error", err.Error()))
		return
	}

	msg := events.Message{
		Event:      event,
		Recipients: recipients,
		Topic:      topic,
		TaskID:     taskID,
		Summary:    summary,
	}
	if err := n.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		log.Warn("event delivery failed",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", kind),
			slog.String("error", err.Error()))
	}
}

// taskAudience returns the owner followed by the assignees.
func taskAudience(ownerID uuid.UUID, assigneeIDs []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(assigneeIDs)+1)
	out = append(out, ownerID)
	for _, id := range assigneeIDs {
		if id != ownerID {
			out = append(out, id)
		}
	}
	return out
}
