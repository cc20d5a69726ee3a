package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskhub-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// migrationCommands are the goose commands exposed by `taskhub migrate`.
var migrationCommands = []string{"up", "down", "status", "version", "reset"}

// slogGooseLogger adapts goose's logger to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf implements goose.Logger.
func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

// Fatalf implements goose.Logger. It logs at ERROR and does not exit; the
// failing goose call returns an error to the caller.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// configureGoose points goose at the embedded migrations.
func configureGoose(logger *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(migrations.TableName)
	goose.SetLogger(&slogGooseLogger{logger: logger.With(slog.String("component", "migrations"))})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// runMigrations executes one goose command against db.
func runMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if err := configureGoose(logger); err != nil {
		return err
	}

	logger.Info("executing migration command", slog.String("command", command))

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	case "version":
		err = goose.VersionContext(ctx, db, ".")
	case "reset":
		err = goose.ResetContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	logger.Info("migration command completed", slog.String("command", command))
	return nil
}

// runMigrateCommand implements `taskhub migrate`.
func runMigrateCommand(ctx context.Context, opts *rootOptions, command string) error {
	cfg, logger, err := loadAppConfig(opts, opts.out)
	if err != nil {
		return err
	}
	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return runMigrations(ctx, db, command, logger)
}
