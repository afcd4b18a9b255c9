package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
)

// TopicPrefix prefixes every outbox topic: sthq.<event_type>.
const TopicPrefix = "sthq."

// Publisher delivers one message to a topic. *KafkaProducer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxPoller polls the event_outbox table and publishes events to Kafka.
type OutboxPoller struct {
	db        repository.DBTX
	repo      repository.OutboxRepository
	producer  Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(db repository.DBTX, repo repository.OutboxRepository, producer Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *OutboxPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxPoller{
		db:        db,
		repo:      repo,
		producer:  producer,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Topic returns the Kafka topic for an event type.
func Topic(evt domain.EventType) string {
	return TopicPrefix + string(evt)
}

// Start begins polling in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	go p.Run(ctx)
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				p.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

// PollOnce publishes one batch of unpublished events in sequence order and
// marks the delivered ones published. Publishing stops at the first failure
// so per-aggregate ordering is kept; the rest are retried next tick.
func (p *OutboxPoller) PollOnce(ctx context.Context) (int, error) {
	events, err := p.repo.FetchUnpublished(ctx, p.db, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(events))
	for _, e := range events {
		msg, err := json.Marshal(e.OutboxDraft)
		if err != nil {
			return 0, fmt.Errorf("marshal event %s: %w", e.EventID, err)
		}
		if err := p.producer.Publish(ctx, Topic(e.EventType), []byte(e.PartitionKey), msg); err != nil {
			if errors.Is(err, ErrProducerDisabled) {
				p.logger.Debug("outbox relay idle; producer disabled", "pending", len(events))
			} else {
				p.logger.Error("kafka publish failed", "event_id", e.EventID, "event_type", e.EventType, "error", err)
			}
			break
		}
		published = append(published, e.SeqID)
	}

	if len(published) > 0 {
		if err := p.repo.MarkPublished(ctx, p.db, published); err != nil {
			return 0, fmt.Errorf("mark published: %w", err)
		}
	}

	p.logger.Debug("outbox poll complete", "published", len(published), "fetched", len(events))
	return len(published), nil
}
