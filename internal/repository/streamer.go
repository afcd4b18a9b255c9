package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/streamteamhq/platform/internal/domain"
)

const streamerColumns = `id, login, COALESCE(twitch_id, ''), COALESCE(display_name, ''),
	COALESCE(profile_image_url, ''), created_at_site, is_admin, clicks, salves`

type streamerRepo struct{}

// NewStreamerRepository returns a pgx-backed StreamerRepository.
func NewStreamerRepository() StreamerRepository {
	return &streamerRepo{}
}

func (r *streamerRepo) IncrementClicks(ctx context.Context, db DBTX, login string) (int64, error) {
	var clicks int64
	err := db.QueryRow(ctx, `
		INSERT INTO streamers (login, display_name, clicks)
		VALUES ($1, $1, 1)
		ON CONFLICT (login) DO UPDATE SET clicks = streamers.clicks + 1
		RETURNING clicks`, login).Scan(&clicks)
	if err != nil {
		return 0, fmt.Errorf("increment clicks: %w", err)
	}
	return clicks, nil
}

func (r *streamerRepo) FindByLogin(ctx context.Context, db DBTX, login string) (*domain.Streamer, error) {
	row := db.QueryRow(ctx, `SELECT `+streamerColumns+` FROM streamers WHERE login = $1`, login)
	return scanStreamer(row)
}

func (r *streamerRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.Streamer, error) {
	row := db.QueryRow(ctx, `SELECT `+streamerColumns+` FROM streamers WHERE id = $1`, id)
	return scanStreamer(row)
}

func (r *streamerRepo) IncrementSalves(ctx context.Context, db DBTX, id int64) (int64, error) {
	var salves int64
	err := db.QueryRow(ctx, `
		UPDATE streamers SET salves = salves + 1
		WHERE id = $1
		RETURNING salves`, id).Scan(&salves)
	if err != nil {
		return 0, fmt.Errorf("increment salves: %w", err)
	}
	return salves, nil
}

func (r *streamerRepo) UpsertFromTwitch(ctx context.Context, db DBTX, u domain.TwitchUser) (*domain.Streamer, error) {
	row := db.QueryRow(ctx, `
		INSERT INTO streamers (login, twitch_id, display_name, profile_image_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (login) DO UPDATE SET
		  twitch_id = EXCLUDED.twitch_id,
		  display_name = EXCLUDED.display_name,
		  profile_image_url = EXCLUDED.profile_image_url
		RETURNING `+streamerColumns,
		domain.NormalizeLogin(u.Login), u.ID, u.DisplayName, u.ProfileImageURL)
	s, err := scanStreamer(row)
	if err != nil {
		return nil, fmt.Errorf("upsert streamer: %w", err)
	}
	return s, nil
}

func (r *streamerRepo) ListRecent(ctx context.Context, db DBTX, limit int) ([]domain.StreamerSummary, error) {
	rows, err := db.Query(ctx, `
		SELECT login, COALESCE(display_name, login), profile_image_url, clicks, salves
		FROM streamers
		WHERE profile_image_url IS NOT NULL AND profile_image_url <> ''
		ORDER BY created_at_site DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent streamers: %w", err)
	}
	return collectSummaries(rows)
}

func (r *streamerRepo) Search(ctx context.Context, db DBTX, q string, limit int) ([]domain.StreamerSummary, error) {
	pattern := "%" + escapeLike(q) + "%"
	rows, err := db.Query(ctx, `
		SELECT login, COALESCE(display_name, login), COALESCE(profile_image_url, ''), clicks, salves
		FROM streamers
		WHERE login ILIKE $1 OR display_name ILIKE $1
		ORDER BY clicks DESC, id ASC
		LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search streamers: %w", err)
	}
	return collectSummaries(rows)
}

func (r *streamerRepo) ListAll(ctx context.Context, db DBTX) ([]domain.Streamer, error) {
	rows, err := db.Query(ctx, `SELECT `+streamerColumns+` FROM streamers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list streamers: %w", err)
	}
	defer rows.Close()

	var out []domain.Streamer
	for rows.Next() {
		s, err := scanStreamer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *streamerRepo) SetAdmin(ctx context.Context, db DBTX, id int64, isAdmin int) (bool, error) {
	tag, err := db.Exec(ctx, `UPDATE streamers SET is_admin = $2 WHERE id = $1`, id, isAdmin)
	if err != nil {
		return false, fmt.Errorf("set admin: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *streamerRepo) ListLogins(ctx context.Context, db DBTX) ([]string, error) {
	rows, err := db.Query(ctx, `SELECT login FROM streamers ORDER BY login ASC`)
	if err != nil {
		return nil, fmt.Errorf("list logins: %w", err)
	}
	logins, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan login: %w", err)
	}
	return logins, nil
}

func collectSummaries(rows pgx.Rows) ([]domain.StreamerSummary, error) {
	defer rows.Close()
	var out []domain.StreamerSummary
	for rows.Next() {
		var s domain.StreamerSummary
		if err := rows.Scan(&s.Login, &s.DisplayName, &s.ProfileImageURL, &s.Clicks, &s.Salves); err != nil {
			return nil, fmt.Errorf("scan streamer summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanStreamer(row pgx.Row) (*domain.Streamer, error) {
	var s domain.Streamer
	err := row.Scan(&s.ID, &s.Login, &s.TwitchID, &s.DisplayName, &s.ProfileImageURL,
		&s.CreatedAtSite, &s.IsAdmin, &s.Clicks, &s.Salves)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan streamer: %w", err)
	}
	return &s, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
