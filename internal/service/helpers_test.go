package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/streamteamhq/platform/internal/audit"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository/repotest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store   *repotest.Store
	clock   *testClock
	audit   *audit.MemorySink
	twitch  *fakeTwitch
	ledger  *LedgerService
	feed    *FeedService
	catalog *CatalogService
	dir     *DirectoryService
}

func newTestEnv() *testEnv {
	store := repotest.New()
	clock := newTestClock()
	store.Now = clock.Now
	repos := store.Repositories()
	logger := discardLogger()
	sink := &audit.MemorySink{}
	tw := newFakeTwitch()

	ledger := NewLedgerService(store.DB(), store, repos, 0, logger)
	ledger.now = clock.Now
	feed := NewFeedService(store.DB(), store, repos, logger)
	feed.now = clock.Now
	catalog := NewCatalogService(store.DB(), repos, sink, logger)
	catalog.now = clock.Now
	dir := NewDirectoryService(store.DB(), repos, ledger, tw, logger)
	dir.now = clock.Now

	return &testEnv{
		store: store, clock: clock, audit: sink, twitch: tw,
		ledger: ledger, feed: feed, catalog: catalog, dir: dir,
	}
}

// fakeTwitch implements TwitchAPI and TwitchLogin.
type fakeTwitch struct {
	mu        sync.Mutex
	users     map[string]domain.TwitchUser
	live      map[string]domain.TwitchStream
	clips     map[string][]domain.TwitchClip
	userErr   error
	streamErr error
	clipErr   error
	codes     map[string]string // code -> login
}

func newFakeTwitch() *fakeTwitch {
	return &fakeTwitch{
		users: map[string]domain.TwitchUser{},
		live:  map[string]domain.TwitchStream{},
		clips: map[string][]domain.TwitchClip{},
		codes: map[string]string{},
	}
}

func (f *fakeTwitch) addUser(u domain.TwitchUser) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Login] = u
}

func (f *fakeTwitch) GetUser(_ context.Context, login string) (*domain.TwitchUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userErr != nil {
		return nil, f.userErr
	}
	u, ok := f.users[login]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeTwitch) GetStreams(_ context.Context, logins []string) ([]domain.TwitchStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	var out []domain.TwitchStream
	for _, l := range logins {
		if s, ok := f.live[l]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeTwitch) GetClips(_ context.Context, broadcasterID string, first int) ([]domain.TwitchClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clipErr != nil {
		return nil, f.clipErr
	}
	c := f.clips[broadcasterID]
	if len(c) > first {
		c = c[:first]
	}
	return c, nil
}

func (f *fakeTwitch) AuthorizeURL(state string) string {
	return "https://id.example/authorize?state=" + state
}

func (f *fakeTwitch) ExchangeCode(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	login, ok := f.codes[code]
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	return "token-" + login, nil
}

func (f *fakeTwitch) CurrentUser(_ context.Context, token string) (*domain.TwitchUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token[len("token-"):]]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return &u, nil
}
