package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/streamteamhq/platform/internal/domain"
)

// ErrProducerDisabled is returned by Publish on a disabled producer so that
// callers never treat an unsent event as delivered.
var ErrProducerDisabled = errors.New("kafka producer disabled")

// KafkaProducer wraps a kafka-go writer for publishing outbox events.
type KafkaProducer struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	enabled bool
}

// NewKafkaProducer creates a Kafka producer. If brokers is empty or disabled,
// Publish logs the event and returns ErrProducerDisabled.
func NewKafkaProducer(brokers string, enabled bool, logger *slog.Logger) *KafkaProducer {
	if !enabled || brokers == "" {
		logger.Info("kafka producer disabled; outbox events stay unpublished")
		return &KafkaProducer{enabled: false, logger: logger}
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka producer initialized", "brokers", brokers)
	return &KafkaProducer{writer: w, logger: logger, enabled: true}
}

// Publish sends a message to the given topic. Messages with the same key land
// on the same partition.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if !p.enabled {
		p.logger.Debug("outbox event not sent", "topic", topic, "key", string(key))
		return ErrProducerDisabled
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// Enabled reports whether Publish delivers to a broker.
func (p *KafkaProducer) Enabled() bool { return p.enabled }

// Close shuts down the Kafka writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// KafkaConsumer wraps a kafka-go reader subscribed to outbox topics.
type KafkaConsumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	enabled bool
}

// NewKafkaConsumer creates a consumer group reader for the given event types.
func NewKafkaConsumer(brokers, groupID string, events []domain.EventType, enabled bool, logger *slog.Logger) *KafkaConsumer {
	if !enabled || brokers == "" {
		return &KafkaConsumer{enabled: false, logger: logger}
	}

	topics := make([]string, 0, len(events))
	for _, e := range events {
		topics = append(topics, Topic(e))
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     strings.Split(brokers, ","),
		GroupID:     groupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})

	logger.Info("kafka consumer initialized", "group", groupID, "topics", topics)
	return &KafkaConsumer{reader: r, logger: logger, enabled: true}
}

// Enabled reports whether the consumer is connected to brokers.
func (c *KafkaConsumer) Enabled() bool { return c.enabled }

// ReadEvent blocks for the next message and decodes it as an outbox event.
func (c *KafkaConsumer) ReadEvent(ctx context.Context) (domain.OutboxDraft, error) {
	if !c.enabled {
		return domain.OutboxDraft{}, fmt.Errorf("kafka consumer disabled")
	}
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return domain.OutboxDraft{}, err
	}
	return DecodeEvent(msg.Value)
}

// DecodeEvent parses a message value written by OutboxPoller.
func DecodeEvent(value []byte) (domain.OutboxDraft, error) {
	var evt domain.OutboxDraft
	if err := json.Unmarshal(value, &evt); err != nil {
		return domain.OutboxDraft{}, fmt.Errorf("decode outbox event: %w", err)
	}
	if evt.EventType == "" {
		return domain.OutboxDraft{}, fmt.Errorf("decode outbox event: missing event_type")
	}
	return evt, nil
}

// Close shuts down the Kafka reader.
func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
