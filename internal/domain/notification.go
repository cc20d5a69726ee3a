package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxNotificationMessageLength matches the notifications.message column.
const MaxNotificationMessageLength = 500

// Notification is the archived copy of an event delivered to one user.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Kind      string     `json:"kind"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewNotification creates an unread notification for userID. Messages longer
// than the column limit are truncated.
func NewNotification(userID uuid.UUID, kind string, taskID *uuid.UUID, message string) *Notification {
	runes := []rune(message)
	if len(runes) > MaxNotificationMessageLength {
		message = string(runes[:MaxNotificationMessageLength])
	}
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		TaskID:    taskID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
