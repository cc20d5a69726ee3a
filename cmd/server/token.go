package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/postgres"
	"github.com/phrazzld/taskhub-api/internal/service/auth"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// issueToken signs a token for an existing user, carrying the user's role.
func issueToken(ctx context.Context, users store.UserStore, jwt auth.JWTService, rawUserID string) (string, error) {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return "", domain.NewValidationError("user", "has invalid format", domain.ErrInvalidID)
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("cannot issue token: %w", err)
	}
	return jwt.GenerateToken(ctx, user.ID, user.Role)
}

// runIssueToken implements `taskhub token`. The token is the only output on
// stdout; logs go to stderr.
func runIssueToken(ctx context.Context, opts *rootOptions, rawUserID string) error {
	cfg, logger, err := loadAppConfig(opts, os.Stderr)
	if err != nil {
		return err
	}
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	token, err := issueToken(ctx, postgres.NewPostgresUserStore(db, logger), jwtService, rawUserID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(opts.out, token)
	return err
}
