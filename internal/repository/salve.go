package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
)

type salveRepo struct{}

// NewSalveRepository returns a pgx-backed SalveRepository.
func NewSalveRepository() SalveRepository {
	return &salveRepo{}
}

// LockPair takes a transaction-scoped advisory lock keyed on the ordered pair.
func (r *salveRepo) LockPair(ctx context.Context, db DBTX, senderID, receiverID int64) error {
	key := fmt.Sprintf("salve:%d:%d", senderID, receiverID)
	if _, err := db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock salve pair: %w", err)
	}
	return nil
}

func (r *salveRepo) ExistsSince(ctx context.Context, db DBTX, senderID, receiverID int64, since time.Time) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM salves
		  WHERE sender_id = $1 AND receiver_id = $2 AND created_at > $3
		)`, senderID, receiverID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check salve window: %w", err)
	}
	return exists, nil
}

func (r *salveRepo) Insert(ctx context.Context, db DBTX, senderID, receiverID int64, at time.Time) (*domain.Salve, error) {
	s := domain.Salve{SenderID: senderID, ReceiverID: receiverID}
	err := db.QueryRow(ctx, `
		INSERT INTO salves (sender_id, receiver_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, senderID, receiverID, at).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert salve: %w", err)
	}
	return &s, nil
}
