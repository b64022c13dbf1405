package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"imageAnnotation/internal/auth"
	"imageAnnotation/internal/config"
	grpcserver "imageAnnotation/internal/grpc"
	"imageAnnotation/internal/httpapi"
	"imageAnnotation/internal/logging"
	"imageAnnotation/internal/progress"
	"imageAnnotation/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Debug)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	uf, created, err := config.LoadUsers(cfg.Storage.UsersFile)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if created {
		logger.Warn("users file not found, wrote default configuration", "path", cfg.Storage.UsersFile)
	}

	// Build indexes
	if err := os.MkdirAll(cfg.Storage.ImagesDir, 0o755); err != nil {
		return fmt.Errorf("create images dir: %w", err)
	}
	users, err := repository.NewUserRepository(uf)
	if err != nil {
		return fmt.Errorf("build user index: %w", err)
	}
	batches, err := repository.NewBatchRepository(uf, users, cfg.Storage.ImagesDir)
	if err != nil {
		return fmt.Errorf("build batch index: %w", err)
	}
	if err := batches.EnsureFolders(); err != nil {
		return err
	}
	labels := repository.NewLabelRepository(batches)
	images := repository.NewImageRepository()
	reporter := progress.NewReporter(batches, labels, images)
	logger.Info("indexes built", "users", len(users.List(context.Background())), "batches", len(batches.List(context.Background())))

	issuer, err := auth.NewIssuer(users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	// Start HTTP
	stopHTTP, err := httpapi.StartHTTP(cfg, httpapi.Deps{
		Users:     users,
		Batches:   batches,
		Labels:    labels,
		Images:    images,
		Issuer:    issuer,
		Progress:  reporter,
		UsersFile: uf,
	}, logger)
	if err != nil {
		return fmt.Errorf("start http: %w", err)
	}

	// Start gRPC
	var stopGRPC func(context.Context) error
	if cfg.GRPC.Address != "" {
		_, stopGRPC, err = grpcserver.StartGRPC(cfg, grpcserver.Services{
			Users:    users,
			Batches:  batches,
			Labels:   labels,
			Images:   images,
			Progress: reporter,
		}, logger)
		if err != nil {
			return fmt.Errorf("start grpc: %w", err)
		}
	}

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logger.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if stopGRPC != nil {
		if err := stopGRPC(ctx); err != nil {
			logger.Error("grpc shutdown", "error", err)
		}
	}
	if err := stopHTTP(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	return nil
}
