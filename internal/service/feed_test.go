package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/streamteamhq/platform/internal/domain"
)

func seedFeed(t *testing.T, env *testEnv) {
	t.Helper()
	now := env.clock.Now()
	env.store.SeedNotification(domain.Notification{Title: "old", Message: "m", Icon: "🔔", Category: "system", CreatedAt: now.Add(-2 * time.Hour)})
	env.store.SeedNotification(domain.Notification{Title: "new", Message: "m", Icon: "🔔", Category: "system", CreatedAt: now.Add(-time.Hour)})
	pts := domain.FlexInt(25)
	_, err := env.catalog.CreateQuest(context.Background(), domain.QuestInput{Title: "Raid", RewardPoints: &pts})
	require.NoError(t, err)
}

func TestFeedList_QuestsFirstThenNewest(t *testing.T) {
	env := newTestEnv()
	seedFeed(t, env)

	items, err := env.feed.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "quest-1", items[0].ID)
	assert.Equal(t, "Raid", items[0].Title)
	assert.Equal(t, env.clock.Now(), items[0].CreatedAt)
	assert.Equal(t, "new", items[1].Title)
	assert.Equal(t, "old", items[2].Title)
	for _, it := range items {
		assert.False(t, it.Read)
	}
}

func TestFeed_MarkAllReadIdempotent(t *testing.T) {
	env := newTestEnv()
	seedFeed(t, env)
	ctx := context.Background()
	viewer := &domain.Identity{ID: 7, Login: "viewer"}

	n, err := env.feed.MarkAllRead(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = env.feed.MarkAllRead(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 2, env.store.ReadCount(7))

	items, err := env.feed.List(ctx, viewer)
	require.NoError(t, err)
	for _, it := range items {
		if it.IsQuest() {
			assert.False(t, it.Read, "quest entries are never read")
		} else {
			assert.True(t, it.Read)
		}
	}

	// Other viewers and anonymous callers are unaffected.
	items, err = env.feed.List(ctx, &domain.Identity{ID: 8})
	require.NoError(t, err)
	for _, it := range items {
		assert.False(t, it.Read)
	}
}

func TestFeed_NewNotificationAfterMarkReadIsUnread(t *testing.T) {
	env := newTestEnv()
	seedFeed(t, env)
	ctx := context.Background()
	viewer := &domain.Identity{ID: 7}

	_, err := env.feed.MarkAllRead(ctx, viewer)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	id, err := env.feed.Publish(ctx, domain.NotificationInput{Title: "fresh", Message: "hello"})
	require.NoError(t, err)

	items, err := env.feed.List(ctx, viewer)
	require.NoError(t, err)
	var found bool
	for _, it := range items {
		if it.Title == "fresh" {
			found = true
			assert.False(t, it.Read)
			assert.Equal(t, "🔔", it.Icon)
			assert.Equal(t, "system", it.Category)
		}
	}
	assert.True(t, found, "notification %d in feed", id)
}

func TestFeed_MarkAllReadRequiresSession(t *testing.T) {
	env := newTestEnv()
	_, err := env.feed.MarkAllRead(context.Background(), nil)
	requireAppError(t, err, http.StatusUnauthorized)
}

func TestFeed_Publish(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.feed.Publish(ctx, domain.NotificationInput{Message: "no title"})
	requireAppError(t, err, http.StatusBadRequest)

	id, err := env.feed.Publish(ctx, domain.NotificationInput{Title: "Patch", Message: "v2", Icon: "🚀", Category: "release"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	events := env.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNotificationCreated, events[0].EventType)
}

func TestFeedList_StorageFailure(t *testing.T) {
	env := newTestEnv()
	env.store.FailOn("quests.List", nil)
	_, err := env.feed.List(context.Background(), nil)
	requireAppError(t, err, http.StatusInternalServerError)
}
