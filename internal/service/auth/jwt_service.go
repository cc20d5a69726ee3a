package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and validates bearer tokens. Login is handled by
// another system; this service only needs to trust its tokens and mint
// tokens for operators.
type JWTService interface {
	// GenerateToken creates a signed access token for the user.
	GenerateToken(ctx context.Context, userID uuid.UUID, role string) (string, error)

	// ValidateToken verifies signature, issuer, audience and lifetime and
	// returns the claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated content of a token.
type Claims struct {
	UserID    uuid.UUID
	Role      string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}
