package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/snapsync/internal/config"
	"github.com/vbonduro/snapsync/internal/db"
	"github.com/vbonduro/snapsync/internal/filestore"
	"github.com/vbonduro/snapsync/internal/filestore/local"
	"github.com/vbonduro/snapsync/internal/filestore/s3"
	"github.com/vbonduro/snapsync/internal/service"
	"github.com/vbonduro/snapsync/internal/store"
	"github.com/vbonduro/snapsync/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the remote store HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	flags := cmd.Flags()
	flags.String(config.KeyListenAddr, ":8080", "address to listen on")
	flags.String(config.KeyDBPath, "/data/snapsync.db", "SQLite database path")
	flags.String(config.KeyStoreBackend, "local", "file store backend (local or s3)")
	flags.String(config.KeyStorePath, "/data/uploads", "upload directory for the local backend")
	flags.String(config.KeyS3Endpoint, "", "S3 endpoint host[:port]")
	flags.String(config.KeyS3Region, "us-east-1", "S3 region")
	flags.String(config.KeyS3Bucket, "", "S3 bucket")
	flags.String(config.KeyS3Prefix, "sessions", "object key prefix")
	flags.String(config.KeyS3AccessKey, "", "S3 access key")
	flags.String(config.KeyS3SecretKey, "", "S3 secret key")
	flags.Bool(config.KeyS3Insecure, false, "use plain HTTP for S3")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	files, err := newFileStore(cfg, logger)
	if err != nil {
		return err
	}

	svc := service.NewStorageService(store.NewSessionStore(database), store.NewUploadStore(database), files, logger)
	server := web.NewServer(svc, logger)
	httpServer := server.HTTPServer(cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-cmd.Context().Done():
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}

func newFileStore(cfg *config.Config, logger *slog.Logger) (filestore.FileStore, error) {
	switch cfg.StoreBackend {
	case "s3":
		logger.Info("using s3 file store", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return s3.New(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Insecure:  cfg.S3Insecure,
		})
	case "local", "":
		logger.Info("using local file store", "path", cfg.StorePath)
		return local.New(cfg.StorePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
