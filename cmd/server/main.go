// Package main implements the taskhub command: the collaborative task API
// server plus its operational subcommands.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootOptions are flags shared by every subcommand.
type rootOptions struct {
	configFile string
	out        io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{out: os.Stdout}

	root := &cobra.Command{
		Use:           "taskhub",
		Short:         "taskhub - collaborative task management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"path to a config file (defaults to ./config.yaml when present)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSeedAdminCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var skipMigrations bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts, !skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version|reset]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			return runMigrateCommand(cmd.Context(), opts, command)
		},
	}
}

func newSeedAdminCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the configured administrator if no administrator exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedAdmin(cmd.Context(), opts)
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIssueToken(cmd.Context(), opts, userID)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "ID of the user the token is issued for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
