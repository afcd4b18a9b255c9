//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every table and resets identity sequences.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"event_outbox",
		"twitch_clips",
		"live_streams",
		"quests",
		"cards",
		"user_notifications",
		"notifications",
		"salves",
		"streamers",
	}

	for _, table := range tables {
		_, _ = env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE")
	}
}
