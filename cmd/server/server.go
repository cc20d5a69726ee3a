package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// readHeaderTimeout bounds how long a client may take to send headers.
// Request bodies and websocket streams are not bounded here.
const readHeaderTimeout = 10 * time.Second

// runServe implements `taskhub serve`: it wires the application and serves
// HTTP until ctx is canceled.
func runServe(ctx context.Context, opts *rootOptions, applyMigrations bool) error {
	cfg, logger, err := loadAppConfig(opts, opts.out)
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	if applyMigrations {
		if err := runMigrations(ctx, db, "up", logger); err != nil {
			_ = db.Close()
			return err
		}
	}

	app, err := newApplication(cfg, logger, db)
	if err != nil {
		_ = db.Close()
		return err
	}

	if err := seedAdminOnStartup(ctx, app.userStore, cfg.Admin, logger); err != nil {
		app.cleanup()
		return err
	}

	stopBackground, err := app.startBackground()
	if err != nil {
		app.cleanup()
		return err
	}

	return app.startHTTPServer(ctx, app.setupRouter(), stopBackground)
}

// startHTTPServer serves router until ctx is canceled or the listener fails,
// then shuts down gracefully. Websocket connections are hijacked and not
// tracked by http.Server, so they are closed through the hub.
func (app *application) startHTTPServer(
	ctx context.Context,
	router http.Handler,
	stopBackground func(context.Context),
) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.Int("port", app.config.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	case err := <-serveErr:
		if err != nil {
			app.logger.Error("server failed", slog.String("error", err.Error()))
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	timeout := time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		if runErr == nil {
			runErr = fmt.Errorf("server shutdown failed: %w", err)
		}
	}
	stopBackground(shutdownCtx)
	app.cleanup()

	app.logger.Info("server shutdown completed")
	return runErr
}
