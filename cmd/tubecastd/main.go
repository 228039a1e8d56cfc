package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tubecast/internal/accounts"
	"tubecast/internal/authflow"
	"tubecast/internal/config"
	"tubecast/internal/conversation"
	"tubecast/internal/daemon"
	"tubecast/internal/httpapi"
	"tubecast/internal/logging"
	"tubecast/internal/media"
	"tubecast/internal/notify"
	"tubecast/internal/pipeline"
	"tubecast/internal/publisher"
	"tubecast/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}

	backend, err := media.NewClient(cfg)
	if err != nil {
		logger.Error("init media backend", logging.Error(err))
		return
	}

	flow := authflow.New(cfg)
	notifier := notify.NewFromConfig(cfg)
	registry := accounts.NewRegistry(cfg, st, logger)
	manager := conversation.NewManager(registry, logger)
	pub := publisher.NewYouTube(cfg, flow)
	launcher := pipeline.NewLauncher(st, backend, pub, notifier, logger)
	server := httpapi.NewServer(cfg, st, registry, manager, flow, launcher, notifier, logger)

	d, err := daemon.New(cfg, st, logger, server, launcher)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("tubecastd shutting down")
}
