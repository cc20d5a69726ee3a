package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the key type for request-scoped values.
type ContextKey string

// Context keys for request-scoped values.
const (
	// UserIDContextKey holds the authenticated caller's uuid.UUID.
	UserIDContextKey ContextKey = "userID"

	// UserRoleContextKey holds the role claim of the caller's token.
	UserRoleContextKey ContextKey = "userRole"

	// TraceIDKey holds the request trace ID.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes in a trace ID.
	TraceIDLength = 16
)

// WithUserID returns a copy of ctx carrying the caller identity.
func WithUserID(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return context.WithValue(ctx, UserRoleContextKey, role)
}

// UserIDFromContext returns the caller identity. ok is false when the
// request was not authenticated.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// UserRoleFromContext returns the caller's role claim, if any.
func UserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleContextKey).(string)
	return role
}

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID returns 32 hex characters. If crypto/rand fails it falls
// back to a random UUID so the ID is never static.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to generate random trace ID", slog.String("error", err.Error()))
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(b)
}
