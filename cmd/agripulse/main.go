// Command agripulse runs the AgriPulse monitoring server with the
// Discover analytics module mounted under /api/v1/discover/.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/croftlabs/agripulse/internal/config"
	"github.com/croftlabs/agripulse/internal/discover"
	"github.com/croftlabs/agripulse/internal/event"
	"github.com/croftlabs/agripulse/internal/server"
	"github.com/croftlabs/agripulse/internal/store"
	"github.com/croftlabs/agripulse/pkg/plugin"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("AgriPulse server starting")
	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("file", f))
	}

	db, err := store.New(viperCfg.GetString("database.path"))
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	cfg := config.New(viperCfg)
	bus := event.NewBus(logger.Named("bus"))

	mod := discover.New()
	deps := plugin.Dependencies{
		Config: cfg.Sub("discover"),
		Logger: logger.Named("discover"),
		Bus:    bus,
		Store:  db,
	}
	ctx := context.Background()
	if err := mod.Init(ctx, deps); err != nil {
		logger.Fatal("failed to initialize discover module", zap.Error(err))
	}
	if err := mod.Start(ctx); err != nil {
		logger.Fatal("failed to start discover module", zap.Error(err))
	}

	ready := func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	}
	srv := server.New(viperCfg.GetString("server.listen"), logger.Named("http"), ready, mod)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := mod.Stop(shutdownCtx); err != nil {
		logger.Warn("discover module stop failed", zap.Error(err))
	}
}
