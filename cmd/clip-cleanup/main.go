// Command clip-cleanup deletes cached Twitch clips older than CLIP_RETENTION.
// Run it from cron.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/streamteamhq/platform/internal/infra"
	"github.com/streamteamhq/platform/internal/repository"
	"github.com/streamteamhq/platform/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("clip cleanup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = infra.NewLogger(os.Stdout, cfg.LogLevel)

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	dir := service.NewDirectoryService(pool, repository.NewPgRepositories(), nil, nil, logger)
	n, err := dir.CleanupClips(ctx, cfg.ClipRetention)
	if err != nil {
		return err
	}
	logger.Info("clip cleanup finished", "deleted", n, "retention", cfg.ClipRetention)
	return nil
}
