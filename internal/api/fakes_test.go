package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/api/shared"
	"github.com/phrazzld/taskhub-api/internal/domain"
)

type fakeTaskService struct {
	createFn func(ctx context.Context, callerID uuid.UUID, p domain.NewTaskParams) (*domain.Task, error)
	getFn    func(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error)
	listFn   func(ctx context.Context, callerID uuid.UUID, q domain.TaskQuery) (*domain.TaskPage, error)
	updateFn func(ctx context.Context, taskID, callerID uuid.UUID, p domain.TaskPatch) (*domain.Task, error)
	deleteFn func(ctx context.Context, taskID, callerID uuid.UUID) error
}

func (f *fakeTaskService) Create(ctx context.Context, callerID uuid.UUID, p domain.NewTaskParams) (*domain.Task, error) {
	return f.createFn(ctx, callerID, p)
}

func (f *fakeTaskService) Get(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error) {
	return f.getFn(ctx, taskID, callerID)
}

func (f *fakeTaskService) List(ctx context.Context, callerID uuid.UUID, q domain.TaskQuery) (*domain.TaskPage, error) {
	return f.listFn(ctx, callerID, q)
}

func (f *fakeTaskService) Update(ctx context.Context, taskID, callerID uuid.UUID, p domain.TaskPatch) (*domain.Task, error) {
	return f.updateFn(ctx, taskID, callerID, p)
}

func (f *fakeTaskService) Delete(ctx context.Context, taskID, callerID uuid.UUID) error {
	return f.deleteFn(ctx, taskID, callerID)
}

type fakeAssignmentService struct {
	assignFn   func(ctx context.Context, taskID, ownerID, assigneeID uuid.UUID) (*domain.Assignment, error)
	unassignFn func(ctx context.Context, taskID, ownerID, assigneeID uuid.UUID) error
	listFn     func(ctx context.Context, taskID, callerID uuid.UUID) ([]*domain.Assignment, error)
}

func (f *fakeAssignmentService) Assign(ctx context.Context, taskID, ownerID, assigneeID uuid.UUID) (*domain.Assignment, error) {
	return f.assignFn(ctx, taskID, ownerID, assigneeID)
}

func (f *fakeAssignmentService) Unassign(ctx context.Context, taskID, ownerID, assigneeID uuid.UUID) error {
	return f.unassignFn(ctx, taskID, ownerID, assigneeID)
}

func (f *fakeAssignmentService) List(ctx context.Context, taskID, callerID uuid.UUID) ([]*domain.Assignment, error) {
	return f.listFn(ctx, taskID, callerID)
}

type fakeNotificationService struct {
	listFn     func(ctx context.Context, callerID uuid.UUID) ([]*domain.Notification, error)
	markReadFn func(ctx context.Context, id, callerID uuid.UUID) error
}

func (f *fakeNotificationService) List(ctx context.Context, callerID uuid.UUID) ([]*domain.Notification, error) {
	return f.listFn(ctx, callerID)
}

func (f *fakeNotificationService) MarkRead(ctx context.Context, id, callerID uuid.UUID) error {
	return f.markReadFn(ctx, id, callerID)
}

func (f *fakeNotificationService) Prune(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

// asUser stands in for the auth middleware.
func asUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.WithUserID(r.Context(), userID, domain.RoleUser)))
		})
	}
}

type testHandlers struct {
	tasks         *fakeTaskService
	assignments   *fakeAssignmentService
	notifications *fakeNotificationService
}

func newTestRouter(userID uuid.UUID, h testHandlers) http.Handler {
	r := chi.NewRouter()
	if userID != uuid.Nil {
		r.Use(asUser(userID))
	}
	if h.tasks != nil {
		th := NewTaskHandler(h.tasks, 0, nil)
		r.Get("/api/tasks", th.ListTasks)
		r.Post("/api/tasks", th.CreateTask)
		r.Get("/api/tasks/{id}", th.GetTask)
		r.Put("/api/tasks/{id}", th.UpdateTask)
		r.Patch("/api/tasks/{id}", th.UpdateTask)
		r.Delete("/api/tasks/{id}", th.DeleteTask)
	}
	if h.assignments != nil {
		ah := NewAssignmentHandler(h.assignments, nil)
		r.Get("/api/tasks/{id}/assignments", ah.ListAssignments)
		r.Post("/api/tasks/{id}/assignments", ah.AssignTask)
		r.Delete("/api/tasks/{id}/assignments/{userId}", ah.UnassignTask)
	}
	if h.notifications != nil {
		nh := NewNotificationHandler(h.notifications, nil)
		r.Get("/api/notifications", nh.ListNotifications)
		r.Post("/api/notifications/{id}/read", nh.MarkRead)
	}
	return r
}

func sampleTask(owner uuid.UUID) *domain.Task {
	task, err := domain.NewTask(owner, domain.NewTaskParams{Title: "Write report"})
	if err != nil {
		panic(err)
	}
	return task
}
