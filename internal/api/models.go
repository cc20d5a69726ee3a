package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

// Nullable distinguishes an absent JSON field from an explicit null.
// Set is true whenever the field was present; Null is true for null.
type Nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Null = true
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

// CreateTaskRequest is the payload of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=4000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority"    validate:"omitempty,max=20"`
	Status      string     `json:"status"      validate:"omitempty,max=50"`
}

// toParams converts the request to domain parameters.
func (r CreateTaskRequest) toParams() (domain.NewTaskParams, error) {
	params := domain.NewTaskParams{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Status:      r.Status,
	}
	if r.Priority != "" {
		p, err := domain.ParsePriority(r.Priority)
		if err != nil {
			return domain.NewTaskParams{}, err
		}
		params.Priority = p
	}
	return params, nil
}

// UpdateTaskRequest is the payload of PUT and PATCH /api/tasks/{id}. Only
// the fields present in the body change. Description and due_date accept
// null to clear them; Version, when sent, must match the stored version.
type UpdateTaskRequest struct {
	Title       Nullable[string]    `json:"title"`
	Description Nullable[string]    `json:"description"`
	DueDate     Nullable[time.Time] `json:"due_date"`
	Priority    Nullable[string]    `json:"priority"`
	Status      Nullable[string]    `json:"status"`
	Version     *int                `json:"version"`
}

// toPatch converts the request to a domain patch. An explicit empty string
// is passed through as a value; the domain rejects it where it is invalid.
func (r UpdateTaskRequest) toPatch() (domain.TaskPatch, error) {
	var patch domain.TaskPatch

	if r.Title.Set {
		if r.Title.Null {
			return patch, domain.NewValidationError("title", "cannot be null", nil)
		}
		patch.Title = &r.Title.Value
	}
	if r.Description.Set {
		if r.Description.Null {
			patch.ClearDescription = true
		} else {
			patch.Description = &r.Description.Value
		}
	}
	if r.DueDate.Set {
		if r.DueDate.Null {
			patch.ClearDueDate = true
		} else {
			patch.DueDate = &r.DueDate.Value
		}
	}
	if r.Priority.Set {
		if r.Priority.Null {
			return patch, domain.NewValidationError("priority", "cannot be null", nil)
		}
		p, err := domain.ParsePriority(r.Priority.Value)
		if err != nil {
			return patch, err
		}
		patch.Priority = &p
	}
	if r.Status.Set {
		if r.Status.Null {
			return patch, domain.NewValidationError("status", "cannot be null", nil)
		}
		patch.Status = &r.Status.Value
	}
	if r.Version != nil {
		if *r.Version < 1 {
			return patch, domain.NewValidationError("version", "must be positive", nil)
		}
		patch.ExpectedVersion = r.Version
	}
	return patch, nil
}

// TaskResponse is the JSON representation of a task.
type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	Version     int        `json:"version"`
}

// TaskPageResponse is one page of a task listing.
type TaskPageResponse struct {
	Items      []TaskResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// AssignTaskRequest is the payload of POST /api/tasks/{id}/assignments.
type AssignTaskRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// AssignmentResponse is the JSON representation of an assignment.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	UserID     string    `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// NotificationResponse is the JSON representation of an archived event.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	TaskID    *string   `json:"task_id,omitempty"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      t.Status,
		OwnerID:     t.OwnerID.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Version:     t.Version,
	}
}

func pageToResponse(p *domain.TaskPage) TaskPageResponse {
	items := make([]TaskResponse, 0, len(p.Items))
	for _, t := range p.Items {
		items = append(items, taskToResponse(t))
	}
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = (p.Total + p.PageSize - 1) / p.PageSize
	}
	return TaskPageResponse{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
	}
}

func assignmentToResponse(a *domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:         a.ID.String(),
		TaskID:     a.TaskID.String(),
		UserID:     a.UserID.String(),
		AssignedAt: a.AssignedAt,
	}
}

func notificationToResponse(n *domain.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.TaskID != nil && *n.TaskID != uuid.Nil {
		id := n.TaskID.String()
		resp.TaskID = &id
	}
	return resp
}
