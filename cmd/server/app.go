package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskhub-api/internal/config"
	"github.com/phrazzld/taskhub-api/internal/events"
	"github.com/phrazzld/taskhub-api/internal/platform/postgres"
	"github.com/phrazzld/taskhub-api/internal/service"
	"github.com/phrazzld/taskhub-api/internal/service/auth"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// application holds the wired dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	hub       *events.Hub

	taskService         service.TaskService
	assignmentService   service.AssignmentService
	notificationService service.NotificationService
	jwtService          auth.JWTService
}

// newApplication builds every store, service and publisher on top of db.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db, logger)
	assignmentStore := postgres.NewPostgresAssignmentStore(db, logger)
	userStore := postgres.NewPostgresUserStore(db, logger)
	notificationStore := postgres.NewPostgresNotificationStore(db, logger)
	tx := store.NewSQLTransactor(db)

	hub := events.NewHub(events.HubOptions{
		SendBufferSize: cfg.Realtime.SendBufferSize,
		WriteTimeout:   time.Duration(cfg.Realtime.WriteTimeoutSeconds) * time.Second,
	}, logger)

	publisher := events.NewFanout(logger, hub)
	if cfg.Notifications.Archive {
		archive, err := events.NewArchivingPublisher(notificationStore, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create notification archive: %w", err)
		}
		publisher.Register(archive)
	}

	taskService, err := service.NewTaskService(taskStore, assignmentStore, tx, publisher,
		service.TaskServiceOptions{MaxPageSize: cfg.Tasks.MaxPageSize}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	assignmentService, err := service.NewAssignmentService(taskStore, assignmentStore, userStore, tx, publisher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment service: %w", err)
	}
	notificationService, err := service.NewNotificationService(notificationStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification service: %w", err)
	}

	return &application{
		config:              cfg,
		logger:              logger,
		db:                  db,
		userStore:           userStore,
		hub:                 hub,
		taskService:         taskService,
		assignmentService:   assignmentService,
		notificationService: notificationService,
		jwtService:          jwtService,
	}, nil
}

// cleanup releases the hub and the database pool.
func (app *application) cleanup() {
	app.hub.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", slog.String("error", err.Error()))
	}
}

// startBackground starts scheduled jobs. The returned function stops them
// and waits for a running job to finish or for its ctx to end.
func (app *application) startBackground() (func(context.Context), error) {
	pruner, err := newNotificationPruner(app.notificationService.Prune, app.config.Notifications, app.logger)
	if err != nil {
		return nil, err
	}
	pruner.Start()
	return pruner.Stop, nil
}
