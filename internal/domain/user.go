package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role names.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// User is a registered account. Tasks reference users as owners and
// assignees; account management itself lives outside this service.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name,omitempty"`
	Role           string    `json:"role"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUser creates a user with an already hashed password.
func NewUser(email, fullName, role, hashedPassword string) (*User, error) {
	if role == "" {
		role = RoleUser
	}
	u := &User{
		ID:             uuid.New(),
		Email:          strings.ToLower(strings.TrimSpace(email)),
		FullName:       strings.TrimSpace(fullName),
		Role:           role,
		HashedPassword: hashedPassword,
		CreatedAt:      time.Now().UTC(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the user fields.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if u.Email == "" {
		return NewValidationError("email", "cannot be empty", nil)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email", "has invalid format", nil)
	}
	if u.Role != RoleUser && u.Role != RoleAdmin {
		return NewValidationError("role", "must be User or Admin", nil)
	}
	if u.HashedPassword == "" {
		return NewValidationError("password", "cannot be empty", nil)
	}
	return nil
}
