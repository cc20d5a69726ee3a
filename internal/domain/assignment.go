package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment grants a collaborator visibility on a task. At most one
// assignment exists per (TaskID, UserID).
type Assignment struct {
	ID         uuid.UUID `json:"id"`
	TaskID     uuid.UUID `json:"task_id"`
	UserID     uuid.UUID `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// NewAssignment creates an assignment of userID to taskID.
func NewAssignment(taskID, userID uuid.UUID) (*Assignment, error) {
	a := &Assignment{
		ID:         uuid.New(),
		TaskID:     taskID,
		UserID:     userID,
		AssignedAt: time.Now().UTC(),
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks that all references are set.
func (a *Assignment) Validate() error {
	if a.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if a.TaskID == uuid.Nil {
		return NewValidationError("task_id", "cannot be empty", ErrInvalidID)
	}
	if a.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty", ErrInvalidID)
	}
	return nil
}
