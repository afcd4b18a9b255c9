package repository

import (
	"context"
	"fmt"

	"github.com/streamteamhq/platform/internal/domain"
)

type questRepo struct{}

// NewQuestRepository returns a pgx-backed QuestRepository.
func NewQuestRepository() QuestRepository {
	return &questRepo{}
}

func (r *questRepo) List(ctx context.Context, db DBTX) ([]domain.Quest, error) {
	rows, err := db.Query(ctx, `
		SELECT id, title, COALESCE(description, ''), COALESCE(type, ''), reward_points,
		       COALESCE(requirement, ''), is_active, card_reward_id, created_at
		FROM quests
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quests: %w", err)
	}
	defer rows.Close()

	quests := []domain.Quest{}
	for rows.Next() {
		var q domain.Quest
		if err := rows.Scan(&q.ID, &q.Title, &q.Description, &q.Type, &q.RewardPoints,
			&q.Requirement, &q.IsActive, &q.CardRewardID, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

func (r *questRepo) Create(ctx context.Context, db DBTX, q domain.Quest) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
		INSERT INTO quests (title, description, type, reward_points, requirement, is_active, card_reward_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		q.Title, q.Description, q.Type, q.RewardPoints, q.Requirement, q.IsActive, q.CardRewardID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert quest: %w", mapConstraint(err))
	}
	return id, nil
}

func (r *questRepo) Update(ctx context.Context, db DBTX, id int64, q domain.Quest) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE quests
		SET title = $2, description = $3, type = $4, reward_points = $5,
		    requirement = $6, is_active = $7, card_reward_id = $8
		WHERE id = $1`,
		id, q.Title, q.Description, q.Type, q.RewardPoints, q.Requirement, q.IsActive, q.CardRewardID)
	if err != nil {
		return false, fmt.Errorf("update quest: %w", mapConstraint(err))
	}
	return tag.RowsAffected() > 0, nil
}

func (r *questRepo) Delete(ctx context.Context, db DBTX, id int64) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM quests WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete quest: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
