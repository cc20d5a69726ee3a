package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskhub-api/internal/config"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/postgres"
	"github.com/phrazzld/taskhub-api/internal/service/auth"
	"github.com/phrazzld/taskhub-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// errAdminNotConfigured is returned when seeding is requested without
// admin credentials in the configuration.
var errAdminNotConfigured = errors.New("admin email and password must be configured")

// seedAdmin makes sure at least one administrator exists. It creates the
// configured account only when no admin is present, so running it again is
// a no-op. created reports whether an account was inserted.
func seedAdmin(
	ctx context.Context,
	users store.UserStore,
	hasher auth.PasswordHasher,
	cfg config.AdminConfig,
	logger *slog.Logger,
) (created bool, err error) {
	exists, err := users.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to check for an admin user: %w", err)
	}
	if exists {
		logger.Debug("admin user already present, skipping seed")
		return false, nil
	}
	if cfg.Email == "" || cfg.Password == "" {
		return false, errAdminNotConfigured
	}

	hash, err := hasher.Hash(cfg.Password)
	if err != nil {
		return false, err
	}
	admin, err := domain.NewUser(cfg.Email, cfg.FullName, domain.RoleAdmin, hash)
	if err != nil {
		return false, err
	}

	if err := users.Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return false, fmt.Errorf("cannot seed admin: %s is already registered as a regular user: %w",
				admin.Email, err)
		}
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created", slog.String("user_id", admin.ID.String()))
	return true, nil
}

// seedAdminOnStartup runs seedAdmin for `serve`. A missing admin
// configuration is only a warning there.
func seedAdminOnStartup(ctx context.Context, users store.UserStore, cfg config.AdminConfig, logger *slog.Logger) error {
	_, err := seedAdmin(ctx, users, auth.NewBcryptHasher(bcrypt.DefaultCost), cfg, logger)
	if errors.Is(err, errAdminNotConfigured) {
		logger.Warn("no admin user exists and none is configured")
		return nil
	}
	return err
}

// runSeedAdmin implements `taskhub seed-admin`.
func runSeedAdmin(ctx context.Context, opts *rootOptions) error {
	cfg, logger, err := loadAppConfig(opts, opts.out)
	if err != nil {
		return err
	}
	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	users := postgres.NewPostgresUserStore(db, logger)
	created, err := seedAdmin(ctx, users, auth.NewBcryptHasher(bcrypt.DefaultCost), cfg.Admin, logger)
	if err != nil {
		return err
	}
	if created {
		_, _ = fmt.Fprintf(opts.out, "admin %s created\n", cfg.Admin.Email)
	} else {
		_, _ = fmt.Fprintln(opts.out, "admin already present")
	}
	return nil
}
