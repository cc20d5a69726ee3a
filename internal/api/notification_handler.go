package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/service"
)

// NotificationHandler serves the caller's archived events.
type NotificationHandler struct {
	notifications service.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notifications service.NotificationService, logger *slog.Logger) *NotificationHandler {
	if notifications == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("notification service cannot be nil for NotificationHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.With(slog.String("component", "notification_handler")),
	}
}

// ListNotifications handles GET /api/notifications.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	list, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list notifications")
		return
	}

	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, notificationToResponse(n))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, id, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), id, userID); err != nil {
		HandleAPIError(w, r, err, "Failed to mark notification read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
