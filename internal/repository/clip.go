package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
)

type clipRepo struct{}

// NewClipRepository returns a pgx-backed ClipRepository.
func NewClipRepository() ClipRepository {
	return &clipRepo{}
}

func (r *clipRepo) CountByLogin(ctx context.Context, db DBTX, login string) (int64, error) {
	var n int64
	err := db.QueryRow(ctx, `SELECT count(*) FROM twitch_clips WHERE streamer_login = $1`, login).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count clips: %w", err)
	}
	return n, nil
}

// SaveMany inserts the batch in one statement by unnesting parallel arrays.
func (r *clipRepo) SaveMany(ctx context.Context, db DBTX, login string, clips []domain.TwitchClip) (int64, error) {
	if len(clips) == 0 {
		return 0, nil
	}
	ids := make([]string, len(clips))
	titles := make([]string, len(clips))
	thumbs := make([]string, len(clips))
	urls := make([]string, len(clips))
	created := make([]time.Time, len(clips))
	for i, c := range clips {
		ids[i], titles[i], thumbs[i], urls[i], created[i] = c.ID, c.Title, c.ThumbnailURL, c.URL, c.CreatedAt
	}

	tag, err := db.Exec(ctx, `
		INSERT INTO twitch_clips (streamer_login, twitch_clip_id, title, thumbnail_url, url, clip_created_at)
		SELECT $1, c.id, c.title, c.thumb, c.url, c.created
		FROM unnest($2::text[], $3::text[], $4::text[], $5::text[], $6::timestamptz[])
		  AS c(id, title, thumb, url, created)
		ON CONFLICT (twitch_clip_id) DO NOTHING`,
		login, ids, titles, thumbs, urls, created)
	if err != nil {
		return 0, fmt.Errorf("save clips: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *clipRepo) DeleteOlderThan(ctx context.Context, db DBTX, cutoff time.Time) (int64, error) {
	tag, err := db.Exec(ctx, `DELETE FROM twitch_clips WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old clips: %w", err)
	}
	return tag.RowsAffected(), nil
}
