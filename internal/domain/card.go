package domain

import (
	"strings"
	"time"
)

// Card rarity tiers.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Card is a collectible reward catalog entry.
type Card struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Rarity          string    `json:"rarity"`
	ImageURL        string    `json:"image_url"`
	Description     string    `json:"description"`
	UnlockCondition string    `json:"unlock_condition"`
	CreatedAt       time.Time `json:"created_at"`
}

// CardInput is the admin payload for creating or replacing a card.
type CardInput struct {
	Name            string `json:"name" validate:"required,max=120"`
	Rarity          string `json:"rarity" validate:"required,oneof=common rare epic legendary"`
	ImageURL        string `json:"image_url" validate:"max=2048"`
	Description     string `json:"description" validate:"max=2000"`
	UnlockCondition string `json:"unlock_condition" validate:"max=500"`
}

// Card normalizes and validates the input.
func (in CardInput) Card() (Card, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Rarity = strings.ToLower(strings.TrimSpace(in.Rarity))
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Description = strings.TrimSpace(in.Description)
	in.UnlockCondition = strings.TrimSpace(in.UnlockCondition)
	if err := ValidateStruct(in); err != nil {
		return Card{}, err
	}
	return Card{
		Name:            in.Name,
		Rarity:          in.Rarity,
		ImageURL:        in.ImageURL,
		Description:     in.Description,
		UnlockCondition: in.UnlockCondition,
	}, nil
}
