package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskhub-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskhub-api/internal/api/middleware"
	"github.com/phrazzld/taskhub-api/internal/api/shared"
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string `json:"status"`
}

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(apiMiddleware.Recoverer)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	taskHandler := api.NewTaskHandler(app.taskService, app.config.Tasks.DefaultPageSize, app.logger)
	assignmentHandler := api.NewAssignmentHandler(app.assignmentService, app.logger)
	notificationHandler := api.NewNotificationHandler(app.notificationService, app.logger)
	realtimeHandler := api.NewRealtimeHandler(app.hub, app.taskService, app.config.Realtime.AllowedOrigins, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/tasks", taskHandler.ListTasks)
		r.Post("/tasks", taskHandler.CreateTask)
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTask)
			r.Put("/", taskHandler.UpdateTask)
			r.Patch("/", taskHandler.UpdateTask)
			r.Delete("/", taskHandler.DeleteTask)

			r.Get("/assignments", assignmentHandler.ListAssignments)
			r.Post("/assignments", assignmentHandler.AssignTask)
			r.Delete("/assignments/{userId}", assignmentHandler.UnassignTask)
		})

		r.Get("/notifications", notificationHandler.ListNotifications)
		r.Post("/notifications/{id}/read", notificationHandler.MarkRead)
	})

	r.With(authMiddleware.AuthenticateWebSocket).Get("/hubs/tasks", realtimeHandler.ServeWS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
	})

	return r
}
