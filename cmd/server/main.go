package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micro-ha/korea-connect/internal/config"
	"github.com/micro-ha/korea-connect/internal/ha"
	"github.com/micro-ha/korea-connect/internal/history"
	httpapi "github.com/micro-ha/korea-connect/internal/http"
	"github.com/micro-ha/korea-connect/internal/hub"
	"github.com/micro-ha/korea-connect/internal/logging"
	"github.com/micro-ha/korea-connect/internal/mqtt"
	"github.com/micro-ha/korea-connect/internal/registry"
	"github.com/micro-ha/korea-connect/internal/services"
	"github.com/micro-ha/korea-connect/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(0).Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
		logger.Error("failed to create db directory", "err", err)
		os.Exit(1)
	}
	store, err := storage.New(ctx, cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	reg := registry.New()
	if err := services.RegisterAll(reg); err != nil {
		logger.Error("failed to register services", "err", err)
		os.Exit(1)
	}

	var sinks []hub.Sink
	if cfg.HA.PushStates {
		sinks = append(sinks, ha.NewPusher(cfg.HA.BaseURL, cfg.HA.Token, logger.With("component", "ha")))
	}
	if cfg.MQTT.Enabled {
		publisher, err := mqtt.Connect(cfg.MQTT, logger.With("component", "mqtt"))
		if err != nil {
			logger.Error("mqtt connect failed", "err", err)
			os.Exit(1)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	if cfg.History.Enabled {
		writer, err := history.Connect(cfg.History, logger.With("component", "history"))
		if err != nil {
			logger.Error("history connect failed", "err", err)
			os.Exit(1)
		}
		defer writer.Close()
		sinks = append(sinks, writer)
	}

	serviceHub := hub.New(reg, logger, sinks...)
	defer serviceHub.Close()

	// Restore stored instances. A probe failure skips the instance but
	// keeps its row, so it comes back on the next restart or recreate.
	instances, err := store.List(ctx)
	if err != nil {
		logger.Error("failed to load instances", "err", err)
		os.Exit(1)
	}
	for _, instance := range instances {
		setupCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		if err := serviceHub.Setup(setupCtx, instance); err != nil {
			logger.Warn("instance restore failed", "instance", instance.ID, "service", instance.Service, "err", err)
		}
		cancel()
	}

	if cfg.HA.WatchEvents {
		watcher := ha.NewWatcher(cfg.HA.BaseURL, cfg.HA.Token, logger.With("component", "ha_watch"))
		go watcher.Run(ctx, func(instanceID string) {
			if instanceID == "" {
				for _, rt := range serviceHub.List() {
					rt.TriggerRefresh()
				}
				return
			}
			if rt, ok := serviceHub.Instance(instanceID); ok {
				rt.TriggerRefresh()
			}
		})
	}

	api := httpapi.New(serviceHub, store, reg, logger.With("component", "http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", httpServer.Addr, "instances", len(instances))
	if err := httpapi.RunServer(ctx, httpServer, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
