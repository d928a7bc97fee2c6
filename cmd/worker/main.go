// Package main is the entry point for the voucher export worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bizzplus/internal/app"
	"bizzplus/internal/config"
	"bizzplus/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     cfg.App.Name + "-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warnw("close resources", "error", err)
		}
	}()

	log.Infow("starting voucher export worker",
		"queue", cfg.Export.Queue,
		"concurrency", cfg.Export.Concurrency,
		"tally", cfg.Export.TallyURL != "",
	)

	if err := a.Worker().Run(ctx); err != nil {
		log.Errorw("worker stopped with error", "error", err)
		return
	}

	log.Info("worker stopped")
}
