package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/service"
)

// AssignmentHandler handles task assignment HTTP requests.
type AssignmentHandler struct {
	assignments service.AssignmentService
	logger      *slog.Logger
}

// NewAssignmentHandler creates an AssignmentHandler.
func NewAssignmentHandler(assignments service.AssignmentService, logger *slog.Logger) *AssignmentHandler {
	if assignments == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("assignment service cannot be nil for AssignmentHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentHandler{
		assignments: assignments,
		logger:      logger.With(slog.String("component", "assignment_handler")),
	}
}

// ListAssignments handles GET /api/tasks/{id}/assignments.
func (h *AssignmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	list, err := h.assignments.List(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list assignments")
		return
	}

	resp := make([]AssignmentResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, assignmentToResponse(a))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// AssignTask handles POST /api/tasks/{id}/assignments.
func (h *AssignmentHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	assigneeID, err := uuid.Parse(req.UserID)
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("user_id", "has invalid format", domain.ErrInvalidID), "")
		return
	}

	a, err := h.assignments.Assign(r.Context(), taskID, ownerID, assigneeID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to assign task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, assignmentToResponse(a))
}

// UnassignTask handles DELETE /api/tasks/{id}/assignments/{userId}.
func (h *AssignmentHandler) UnassignTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	ownerID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}
	assigneeID, err := getPathUUID(r, "userId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.assignments.Unassign(r.Context(), taskID, ownerID, assigneeID); err != nil {
		HandleAPIError(w, r, err, "Failed to unassign task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
