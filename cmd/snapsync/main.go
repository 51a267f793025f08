package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/snapsync/internal/config"
	"github.com/vbonduro/snapsync/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapsync",
		Short:         "Capture photos and sync them to a session-scoped remote store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.String(config.KeyLogLevel, "info", "log level (debug, info, warn, error)")
	flags.String(config.KeyLogFile, "", "also append logs to this file")

	cmd.AddCommand(
		newServeCommand(),
		newUploadCommand(),
		newListCommand(),
		newWorkspaceCommand(),
	)
	return cmd
}

// setup loads configuration for cmd and installs the process logger. The
// returned cleanup must be deferred.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.LoadFromFlags(cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, cleanup, nil
}

// addClientFlags registers the flags shared by commands that talk to a server.
func addClientFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String(config.KeyServerURL, "http://localhost:8080", "base URL of the remote store")
	flags.String(config.KeySession, "", "session token naming the remote namespace")
}
