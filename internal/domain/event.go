package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the engagement events written to the outbox.
type EventType string

const (
	EventProfileClicked      EventType = "profile.clicked"
	EventSalveSent           EventType = "salve.sent"
	EventNotificationCreated EventType = "notification.published"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateStreamer     AggregateType = "streamer"
	AggregateNotification AggregateType = "notification"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// OutboxRecord is a stored outbox row awaiting publication.
type OutboxRecord struct {
	SeqID int64
	OutboxDraft
}

// NewOutboxDraft marshals payload into a draft keyed by the aggregate id.
func NewOutboxDraft(agg AggregateType, aggID string, evt EventType, payload any, at time.Time) (OutboxDraft, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return OutboxDraft{}, fmt.Errorf("marshal %s payload: %w", evt, err)
	}
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: agg,
		AggregateID:   aggID,
		EventType:     evt,
		PartitionKey:  aggID,
		Payload:       raw,
		OccurredAt:    at,
	}, nil
}

// SalveSentPayload is the body of a salve.sent event.
type SalveSentPayload struct {
	SalveID       int64     `json:"salve_id"`
	SenderID      int64     `json:"sender_id"`
	SenderLogin   string    `json:"sender_login"`
	ReceiverID    int64     `json:"receiver_id"`
	ReceiverLogin string    `json:"receiver_login"`
	ReceiverTotal int64     `json:"receiver_total"`
	SentAt        time.Time `json:"sent_at"`
}

// NotificationPublishedPayload is the body of a notification.published event.
type NotificationPublishedPayload struct {
	NotificationID int64  `json:"notification_id"`
	Title          string `json:"title"`
	Category       string `json:"category"`
}
