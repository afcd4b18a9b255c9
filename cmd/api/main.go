package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamteamhq/platform/internal/app"
	"github.com/streamteamhq/platform/internal/audit"
	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/infra"
	"github.com/streamteamhq/platform/internal/provider"
	"github.com/streamteamhq/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger = infra.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.RunMigrations {
		if err := infra.RunMigrations(cfg.DSN(), cfg.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	repos := repository.NewPgRepositories()

	twitch, err := provider.NewTwitchClient(provider.TwitchConfig{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
		RedirectURL:  cfg.TwitchRedirectURL,
		APIURL:       cfg.TwitchAPIURL,
		AuthURL:      cfg.TwitchAuthURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("create twitch client: %w", err)
	}

	sink, err := audit.OpenFileSink(cfg.AuditLogPath)
	if err != nil {
		return fmt.Errorf("open card audit log: %w", err)
	}
	defer sink.Close()

	// Outbox relay
	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()
	if producer.Enabled() {
		infra.NewOutboxPoller(pool, repos.Outbox, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger).Start(ctx)
	}

	r := app.NewRouter(app.RouterDeps{
		DB:            pool,
		Tx:            repository.NewPoolTransactor(pool),
		Repos:         repos,
		Health:        infra.PoolHealth{Pool: pool},
		JWTMgr:        auth.NewJWTManager(cfg.SessionSecret, cfg.SessionExpiry),
		Twitch:        twitch,
		Audit:         sink,
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.SecureCookies,
		SalveCooldown: cfg.SalveCooldown,
		APIRateLimit:  cfg.APIRateLimit,
		APIRateWindow: cfg.APIRateWindow,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
