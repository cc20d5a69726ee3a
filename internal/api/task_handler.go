package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/service"
)

// TaskHandler handles task HTTP requests.
type TaskHandler struct {
	tasks           service.TaskService
	defaultPageSize int
	logger          *slog.Logger
}

// NewTaskHandler creates a TaskHandler. defaultPageSize applies when a
// listing does not ask for a page size.
func NewTaskHandler(tasks service.TaskService, defaultPageSize int, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("task service cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if defaultPageSize <= 0 {
		defaultPageSize = domain.DefaultPageSize
	}
	return &TaskHandler{
		tasks:           tasks,
		defaultPageSize: defaultPageSize,
		logger:          logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	page, err := queryInt(r, 1, "page")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	pageSize, err := queryInt(r, h.defaultPageSize, "pageSize", "page_size")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	q := r.URL.Query()
	query := domain.TaskQuery{
		Scope:    domain.TaskScope(strings.ToLower(strings.TrimSpace(q.Get("scope")))),
		Status:   q.Get("status"),
		Search:   strings.TrimSpace(q.Get("search")),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.tasks.List(r.Context(), userID, query)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, pageToResponse(result))
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	params, err := req.toParams()
	if err != nil {
		HandleValidationError(w, r, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), userID, params)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	w.Header().Set("Location", "/api/tasks/"+task.ID.String())
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// UpdateTask handles PUT and PATCH /api/tasks/{id}. Both are partial: only
// fields present in the body change.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		HandleValidationError(w, r, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), taskID, userID, patch)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), taskID, userID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
