package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"FortuneScanner/internal/app"
	"FortuneScanner/internal/config"
	"FortuneScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if closeErr := application.Close(); closeErr != nil {
		logger.Warn("shutdown cleanup failed", "error", closeErr)
	}
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		os.Exit(1)
	}
}
