package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds sent to clients.
const (
	TaskCreated    = "TaskCreated"
	TaskUpdated    = "TaskUpdated"
	TaskDeleted    = "TaskDeleted"
	TaskAssigned   = "TaskAssigned"
	TaskUnassigned = "TaskUnassigned"
)

// Event is the wire form of a notification.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the event kinds above
	Type string `json:"type"`

	// Payload is the task for created/updated events, otherwise a small
	// reference object such as TaskRef or AssignmentRef
	Payload json.RawMessage `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
}

// TaskRef identifies a deleted task.
type TaskRef struct {
	TaskID uuid.UUID `json:"task_id"`
}

// AssignmentRef identifies an assignment change.
type AssignmentRef struct {
	TaskID uuid.UUID `json:"task_id"`
	UserID uuid.UUID `json:"user_id"`
}

// NewEvent creates an Event with the given type, serializing payload to JSON.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// TaskTopic is the topic name clients join to follow one task.
func TaskTopic(taskID uuid.UUID) string {
	return "task:" + taskID.String()
}

// Message is an event addressed to a set of users and an optional topic.
type Message struct {
	Event *Event

	// Recipients receive the event on every connection they hold.
	Recipients []uuid.UUID

	// Topic, when set, also reaches every connection that joined it.
	Topic string

	// TaskID is the task the event concerns.
	TaskID uuid.UUID

	// Summary is a human readable line used for archived notifications.
	Summary string
}

// Publisher delivers messages.
type Publisher interface {
	// Publish delivers msg. Errors describe delivery problems only; callers
	// log them and carry on.
	Publish(ctx context.Context, msg Message) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, msg Message) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Discard is a Publisher that drops every message.
var Discard Publisher = PublisherFunc(func(context.Context, Message) error { return nil })

// uniqueRecipients returns ids without duplicates or nil IDs, keeping order.
func uniqueRecipients(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
