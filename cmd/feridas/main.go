// Package main starts the wound assessment HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcelomcerri-bot/feridas/internal/app/runtime"
	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("feridas").WithError(err).Fatal("load config")
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	}).WithComponent("feridas")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := runtime.NewApplication(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		log.WithError(runErr).Error("HTTP server stopped")
	}

	log.Info("shutting down")
	if err := application.Shutdown(context.Background()); err != nil {
		log.WithError(err).Error("graceful shutdown")
		os.Exit(1)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
