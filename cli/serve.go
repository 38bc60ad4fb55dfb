package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studysync/config"
	"studysync/logger"
	"studysync/routes"
	"studysync/services"
	"studysync/socket"
	"studysync/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the StudySync API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading STUDYSYNC_* variables")
	return cmd
}

func runServe(parent context.Context, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.NewServer()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)
	log := logger.New("studysync-api")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store unavailable")
		return err
	}
	defer store.Close()

	var opts routes.Options
	if cfg.NATSURL != "" {
		broker, err := socket.NewNATSBroker(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		opts.Broker = broker
	}
	if cfg.S3Bucket != "" {
		uploads, err := services.NewUploadService(ctx, cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			return fmt.Errorf("init uploads: %w", err)
		}
		opts.Uploads = uploads
	}

	app, err := routes.NewApp(cfg, store, opts, log)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Start(ctx)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("🚀 StudySync API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}
