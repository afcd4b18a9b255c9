// Command outbox-consumer relays event_outbox rows to Kafka and tails the
// engagement topics into the activity log. It exits when Kafka is disabled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/infra"
	"github.com/streamteamhq/platform/internal/repository"
	"golang.org/x/sync/errgroup"
)

const consumerGroup = "sthq-activity"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
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
	logger.Info("outbox-consumer connected to postgres")

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()

	consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, consumerGroup,
		[]domain.EventType{domain.EventProfileClicked, domain.EventSalveSent, domain.EventNotificationCreated}, cfg.KafkaEnabled, logger)
	defer consumer.Close()

	poller := infra.NewOutboxPoller(pool, repository.NewOutboxRepository(), producer,
		cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)

	if !producer.Enabled() {
		logger.Warn("kafka disabled; nothing to relay")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		poller.Run(gctx)
		return nil
	})
	if consumer.Enabled() {
		g.Go(func() error { return tail(gctx, consumer, logger) })
	}

	err = g.Wait()
	logger.Info("outbox-consumer shutting down")
	return err
}

func tail(ctx context.Context, consumer *infra.KafkaConsumer, logger *slog.Logger) error {
	for {
		evt, err := consumer.ReadEvent(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			logger.Warn("skipping unreadable event", "error", err)
			continue
		}
		logger.Info("activity",
			"event_id", evt.EventID,
			"event_type", evt.EventType,
			"aggregate_id", evt.AggregateID,
			"payload", string(evt.Payload),
			"occurred_at", evt.OccurredAt,
		)
	}
}
