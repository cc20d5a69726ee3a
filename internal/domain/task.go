package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Priority is the urgency of a task.
type Priority string

// Supported priorities.
const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
)

// Task field limits and defaults.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 4000
	MaxStatusLength      = 50

	DefaultPriority = PriorityNormal
	DefaultStatus   = "To Do"
)

// ParsePriority matches a priority name case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, nil
	case "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	default:
		return "", NewValidationError("priority", "must be one of Low, Normal, High", nil)
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	default:
		return false
	}
}

// Task is a unit of work owned by a single user. Only the owner may modify it;
// the owner and its assignees may read it.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    Priority   `json:"priority"`
	Status      string     `json:"status"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	Version     int        `json:"version"`
}

// NewTaskParams carries the caller-supplied fields of a new task.
// Empty Priority and Status fall back to the defaults.
type NewTaskParams struct {
	Title       string
	Description *string
	DueDate     *time.Time
	Priority    Priority
	Status      string
}

// NewTask builds a validated task owned by ownerID.
func NewTask(ownerID uuid.UUID, p NewTaskParams) (*Task, error) {
	priority := p.Priority
	if strings.TrimSpace(string(priority)) == "" {
		priority = DefaultPriority
	}
	status := strings.TrimSpace(p.Status)
	if status == "" {
		status = DefaultStatus
	}

	task := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		DueDate:     utcPtr(p.DueDate),
		Priority:    priority,
		Status:      status,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
		Version:     1,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the task invariants.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.OwnerID == uuid.Nil {
		return NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "cannot be empty", nil)
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return NewValidationError("title", "is too long", nil)
	}
	if t.Description != nil && utf8.RuneCountInString(*t.Description) > MaxDescriptionLength {
		return NewValidationError("description", "is too long", nil)
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "must be one of Low, Normal, High", nil)
	}
	if strings.TrimSpace(t.Status) == "" {
		return NewValidationError("status", "cannot be empty", nil)
	}
	if utf8.RuneCountInString(t.Status) > MaxStatusLength {
		return NewValidationError("status", "is too long", nil)
	}
	return nil
}

// TaskPatch is a partial update. Nil pointers leave a field untouched; a
// pointer to an empty string is an explicit value, not "absent".
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	DueDate          *time.Time
	ClearDueDate     bool
	Priority         *Priority
	Status           *string

	// ExpectedVersion, when set, must equal the stored version.
	ExpectedVersion *int
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && !p.ClearDescription &&
		p.DueDate == nil && !p.ClearDueDate && p.Priority == nil && p.Status == nil
}

// Apply applies the patch to t, stamps UpdatedAt and bumps Version. The task
// is left untouched if the result would be invalid.
func (t *Task) Apply(p TaskPatch, now time.Time) error {
	next := *t

	if p.Title != nil {
		next.Title = strings.TrimSpace(*p.Title)
	}
	if p.ClearDescription {
		next.Description = nil
	} else if p.Description != nil {
		d := *p.Description
		next.Description = &d
	}
	if p.ClearDueDate {
		next.DueDate = nil
	} else if p.DueDate != nil {
		next.DueDate = utcPtr(p.DueDate)
	}
	if p.Priority != nil {
		next.Priority = *p.Priority
	}
	if p.Status != nil {
		next.Status = strings.TrimSpace(*p.Status)
	}

	if err := next.Validate(); err != nil {
		return err
	}

	updated := now.UTC()
	next.UpdatedAt = &updated
	next.Version = t.Version + 1
	*t = next
	return nil
}

// TaskScope selects which tasks a listing covers.
type TaskScope string

// Listing scopes.
const (
	ScopeOwned    TaskScope = "owned"
	ScopeAssigned TaskScope = "assigned"
)

// Paging defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TaskQuery filters a task listing. Page is 1-indexed.
type TaskQuery struct {
	Scope    TaskScope
	Status   string
	Search   string
	Page     int
	PageSize int
}

// Normalize fills defaults and clamps paging to maxPageSize.
func (q TaskQuery) Normalize(maxPageSize int) TaskQuery {
	if maxPageSize <= 0 {
		maxPageSize = MaxPageSize
	}
	if q.Scope == "" {
		q.Scope = ScopeOwned
	}
	q.Status = strings.TrimSpace(q.Status)
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

// Offset returns the number of rows to skip.
func (q TaskQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// TaskPage is one page of a listing.
type TaskPage struct {
	Items    []*Task `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
