package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	id := GetTraceID(traced)
	assert.Len(t, id, 32)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)

	assert.Empty(t, GetTraceID(ctx), "parent context unchanged")
	assert.NotEqual(t, id, GetTraceID(SetTraceID(ctx)))
}

func TestGetTraceIDWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123)
	assert.Empty(t, GetTraceID(ctx))
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFromContext(WithUserID(context.Background(), uuid.Nil, ""))
	assert.False(t, ok, "nil id is not an identity")

	id := uuid.New()
	ctx := WithUserID(context.Background(), id, "Admin")
	got, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, "Admin", UserRoleFromContext(ctx))
}
