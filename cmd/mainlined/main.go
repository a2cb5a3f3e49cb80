package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"mainline/internal/assets"
	"mainline/internal/config"
	"mainline/internal/daemon"
	"mainline/internal/logging"
	"mainline/internal/transcode"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := assets.Open(cfg)
	if err != nil {
		logger.Error("open asset store", logging.Error(err))
		return
	}

	orch := transcode.New(cfg, store, logger)

	d, err := daemon.New(cfg, store, orch, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("mainlined shutting down")
}
