package repository

import (
	"context"
	"fmt"

	"github.com/streamteamhq/platform/internal/domain"
)

type cardRepo struct{}

// NewCardRepository returns a pgx-backed CardRepository.
func NewCardRepository() CardRepository {
	return &cardRepo{}
}

func (r *cardRepo) List(ctx context.Context, db DBTX) ([]domain.Card, error) {
	rows, err := db.Query(ctx, `
		SELECT id, name, rarity, COALESCE(image_url, ''), COALESCE(description, ''),
		       COALESCE(unlock_condition, ''), created_at
		FROM cards
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.Rarity, &c.ImageURL, &c.Description,
			&c.UnlockCondition, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (r *cardRepo) Create(ctx context.Context, db DBTX, c domain.Card) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO cards (name, rarity, image_url, description, unlock_condition)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		c.Name, c.Rarity, c.ImageURL, c.Description, c.UnlockCondition).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert card: %w", err)
	}
	return id, nil
}

func (r *cardRepo) Update(ctx context.Context, db DBTX, id int64, c domain.Card) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE cards
		SET name = $2, rarity = $3, image_url = $4, description = $5, unlock_condition = $6
		WHERE id = $1`,
		id, c.Name, c.Rarity, c.ImageURL, c.Description, c.UnlockCondition)
	if err != nil {
		return false, fmt.Errorf("update card: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *cardRepo) Delete(ctx context.Context, db DBTX, id int64) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete card: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
