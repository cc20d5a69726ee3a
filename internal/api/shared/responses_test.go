package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, r, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestRespondWithFieldError(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(SetTraceID(r.Context()))
	w := httptest.NewRecorder()

	RespondWithFieldError(w, r, http.StatusBadRequest, "title cannot be empty", "title")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title cannot be empty", resp.Error)
	assert.Equal(t, "title", resp.Field)
	assert.Equal(t, GetTraceID(r.Context()), resp.TraceID)
}

func TestRespondWithErrorAndLogRedacts(t *testing.T) {
	log, buf := logger.NewTestLogger(t)
	r := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	r = r.WithContext(logger.WithLogger(r.Context(), log))
	w := httptest.NewRecorder()

	err := errors.New("dial postgres://app:s3cretpass@db:5432/app failed")
	RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "An unexpected error occurred", err)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "s3cretpass")
	assert.NotContains(t, buf.String(), "s3cretpass")
	logger.AssertLogContains(t, buf, "API error response")
	logger.AssertLogField(t, buf, "level", "ERROR")
}
