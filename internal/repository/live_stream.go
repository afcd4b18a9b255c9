package repository

import (
	"context"
	"fmt"

	"github.com/streamteamhq/platform/internal/domain"
)

type liveStreamRepo struct{}

// NewLiveStreamRepository returns a pgx-backed LiveStreamRepository.
func NewLiveStreamRepository() LiveStreamRepository {
	return &liveStreamRepo{}
}

func (r *liveStreamRepo) CountByLogin(ctx context.Context, db DBTX, login string) (int64, error) {
	var n int64
	err := db.QueryRow(ctx, `SELECT count(*) FROM live_streams WHERE login = $1`, login).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live streams: %w", err)
	}
	return n, nil
}

func (r *liveStreamRepo) Record(ctx context.Context, db DBTX, s domain.TwitchStream) error {
	_, err := db.Exec(ctx, `
		INSERT INTO live_streams (login, stream_id, title, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (stream_id) DO NOTHING`,
		domain.NormalizeLogin(s.UserLogin), s.ID, s.Title, s.StartedAt)
	if err != nil {
		return fmt.Errorf("record live stream: %w", err)
	}
	return nil
}
