package domain

import (
	"errors"
	"strings"
	"time"
)

// Quest is an admin-defined objective surfaced to users as a reminder.
type Quest struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title" validate:"required,max=200"`
	Description  string    `json:"description" validate:"max=2000"`
	Type         string    `json:"type" validate:"max=64"`
	RewardPoints int       `json:"reward_points" validate:"min=0,max=2147483647"`
	Requirement  string    `json:"requirement" validate:"max=500"`
	IsActive     bool      `json:"is_active"`
	CardRewardID *int64    `json:"card_reward_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// QuestInput is the admin payload for a quest. The admin panel has sent both
// title/reward_points and name/xp_reward over time; both spellings are accepted.
type QuestInput struct {
	Title        string   `json:"title"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	RewardPoints *FlexInt `json:"reward_points"`
	XPReward     *FlexInt `json:"xp_reward"`
	Requirement  string   `json:"requirement"`
	IsActive     *bool    `json:"is_active"`
	CardRewardID *FlexInt `json:"card_reward_id"`
}

// Quest resolves aliases, applies defaults and validates the input.
// Quests are active unless is_active is explicitly false.
func (in QuestInput) Quest() (Quest, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSpace(in.Name)
	}
	points := in.RewardPoints
	if points == nil {
		points = in.XPReward
	}
	if points == nil {
		if title == "" {
			return Quest{}, errors.New("title is required; reward_points is required")
		}
		return Quest{}, errors.New("reward_points is required")
	}

	q := Quest{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Type:         strings.TrimSpace(in.Type),
		RewardPoints: int(*points),
		Requirement:  strings.TrimSpace(in.Requirement),
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if in.CardRewardID != nil && *in.CardRewardID > 0 {
		id := int64(*in.CardRewardID)
		q.CardRewardID = &id
	}
	if err := ValidateStruct(q); err != nil {
		return Quest{}, err
	}
	return q, nil
}
