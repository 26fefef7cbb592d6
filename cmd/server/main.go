package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/moni-del/dragon-d/internal/app"
	"github.com/moni-del/dragon-d/internal/config"
	"github.com/moni-del/dragon-d/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("dt-store exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(app.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	log.InfoContext(ctx, "dt-store starting",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.Bool("discord_gate", cfg.DiscordConfigured()),
	)
	if err := store.Run(ctx); err != nil {
		return err
	}
	log.Info("dt-store stopped")
	return nil
}
