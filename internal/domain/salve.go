package domain

import "time"

// DefaultSalveCooldown is the window during which a repeat salve between the
// same sender and receiver is rejected.
const DefaultSalveCooldown = 24 * time.Hour

// Salve is one boost sent from a streamer to another. Rows are never updated.
type Salve struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CooldownStart returns the earliest created_at that still blocks a new salve at now.
func CooldownStart(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}
