//go:build integration

package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/streamteamhq/platform/internal/app"
	"github.com/streamteamhq/platform/internal/audit"
	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/infra"
	"github.com/streamteamhq/platform/internal/repository"
)

const (
	TestSessionSecret = "integration-test-session-secret-0123456789"
	TestDBHost        = "localhost"
	TestDBPort        = 5435
	TestDBUser        = "sthq"
	TestDBPass        = "sthq"
	TestDBName        = "streamteamhq_test"
)

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server *httptest.Server
	Pool   *pgxpool.Pool
	JWTMgr *auth.JWTManager
	Audit  *audit.MemorySink
	Twitch *FakeTwitch
	t      *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, "streamteamhq")
}

func ensureTestDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bPool, err := pgxpool.New(ctx, bootstrapDSN())
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer bPool.Close()

	var exists bool
	err = bPool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", TestDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check db exists: %w", err)
	}

	if !exists {
		if _, err := bPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", TestDBName)); err != nil {
			return fmt.Errorf("create test db: %w", err)
		}
	}
	return nil
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}

		// An empty dir resolves db/migrations relative to the module root.
		if err := infra.RunMigrations(testDSN(), "", quietLogger()); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolCfg, err := pgxpool.ParseConfig(testDSN())
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestEnv creates a test environment with an httptest.Server backed by the
// real router and test DB. The API rate limit is disabled.
func NewTestEnv(t *testing.T) *TestEnv {
	return NewTestEnvWithLimit(t, 0)
}

// NewTestEnvWithLimit is NewTestEnv with a per-client API rate limit.
func NewTestEnvWithLimit(t *testing.T, rateLimit int) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	jwtMgr := auth.NewJWTManager(TestSessionSecret, 24*time.Hour)
	sink := &audit.MemorySink{}
	tw := NewFakeTwitch()

	router := app.NewRouter(app.RouterDeps{
		DB:            pool,
		Tx:            repository.NewPoolTransactor(pool),
		Repos:         repository.NewPgRepositories(),
		Health:        infra.PoolHealth{Pool: pool},
		JWTMgr:        jwtMgr,
		Twitch:        tw,
		Audit:         sink,
		Logger:        quietLogger(),
		CORSOrigins:   "*",
		SalveCooldown: 24 * time.Hour,
		APIRateLimit:  rateLimit,
		APIRateWindow: 15 * time.Minute,
	})

	server := httptest.NewServer(router)

	env := &TestEnv{
		Server: server,
		Pool:   pool,
		JWTMgr: jwtMgr,
		Audit:  sink,
		Twitch: tw,
		t:      t,
	}

	t.Cleanup(func() {
		server.Close()
		env.CleanAll()
	})

	env.CleanAll()
	return env
}

// FakeTwitch serves canned Helix and OAuth responses. Codes map to the login
// whose access token they yield; the token is the login itself.
type FakeTwitch struct {
	mu    sync.Mutex
	users map[string]domain.TwitchUser
	codes map[string]string
	live  []domain.TwitchStream
	clips map[string][]domain.TwitchClip
}

func NewFakeTwitch() *FakeTwitch {
	return &FakeTwitch{
		users: map[string]domain.TwitchUser{},
		codes: map[string]string{},
		clips: map[string][]domain.TwitchClip{},
	}
}

// AddUser registers a Twitch account and an OAuth code that logs it in.
func (f *FakeTwitch) AddUser(u domain.TwitchUser, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Login] = u
	if code != "" {
		f.codes[code] = u.Login
	}
}

func (f *FakeTwitch) SetLive(streams ...domain.TwitchStream) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = streams
}

func (f *FakeTwitch) SetClips(broadcasterID string, clips ...domain.TwitchClip) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clips[broadcasterID] = clips
}

func (f *FakeTwitch) GetUser(_ context.Context, login string) (*domain.TwitchUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[login]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *FakeTwitch) GetStreams(_ context.Context, logins []string) ([]domain.TwitchStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(logins))
	for _, l := range logins {
		want[l] = true
	}
	var out []domain.TwitchStream
	for _, s := range f.live {
		if want[s.UserLogin] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FakeTwitch) GetClips(_ context.Context, broadcasterID string, limit int) ([]domain.TwitchClip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clips := f.clips[broadcasterID]
	if limit > 0 && len(clips) > limit {
		clips = clips[:limit]
	}
	return clips, nil
}

func (f *FakeTwitch) AuthorizeURL(state string) string {
	return "https://id.twitch.tv/oauth2/authorize?state=" + url.QueryEscape(state)
}

func (f *FakeTwitch) ExchangeCode(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	login, ok := f.codes[code]
	if !ok {
		return "", errors.New("invalid authorization code")
	}
	return login, nil
}

func (f *FakeTwitch) CurrentUser(_ context.Context, token string) (*domain.TwitchUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token]
	if !ok {
		return nil, errors.New("unknown access token")
	}
	return &u, nil
}
