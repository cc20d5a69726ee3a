package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/taskhub-api/internal/config"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
)

// loadAppConfig loads configuration and installs the configured logger as
// the slog default. Logs go to logOut.
func loadAppConfig(opts *rootOptions, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.SetupWithWriter(cfg.Server, logOut)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))
	l.Debug("auth configuration",
		slog.String("issuer", cfg.Auth.Issuer),
		slog.String("audience", cfg.Auth.Audience),
		slog.Bool("jwt_secret_present", cfg.Auth.JWTSecret != ""))

	return cfg, l, nil
}
