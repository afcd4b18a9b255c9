package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/streamteamhq/platform/internal/audit"
	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTwitch struct {
	users map[string]domain.TwitchUser
	codes map[string]string
}

func (s *stubTwitch) GetUser(_ context.Context, login string) (*domain.TwitchUser, error) {
	u, ok := s.users[login]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *stubTwitch) GetStreams(context.Context, []string) ([]domain.TwitchStream, error) {
	return nil, nil
}

func (s *stubTwitch) GetClips(context.Context, string, int) ([]domain.TwitchClip, error) {
	return nil, nil
}

func (s *stubTwitch) AuthorizeURL(state string) string {
	return "https://id.twitch.tv/oauth2/authorize?state=" + url.QueryEscape(state)
}

func (s *stubTwitch) ExchangeCode(_ context.Context, code string) (string, error) {
	login, ok := s.codes[code]
	if !ok {
		return "", errors.New("invalid code")
	}
	return login, nil
}

func (s *stubTwitch) CurrentUser(_ context.Context, token string) (*domain.TwitchUser, error) {
	u, ok := s.users[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &u, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type testServer struct {
	t      *testing.T
	router chi.Router
	store  *repotest.Store
	jwt    *auth.JWTManager
	audit  *audit.MemorySink
	twitch *stubTwitch
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	store := repotest.New()
	jwtMgr := auth.NewJWTManager("router-test-secret", time.Hour)
	sink := &audit.MemorySink{}
	tw := &stubTwitch{users: map[string]domain.TwitchUser{}, codes: map[string]string{}}
	r := NewRouter(RouterDeps{
		DB:            store.DB(),
		Tx:            store,
		Repos:         store.Repositories(),
		Health:        okPinger{},
		JWTMgr:        jwtMgr,
		Twitch:        tw,
		Audit:         sink,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		CORSOrigins:   "*",
		APIRateLimit:  rateLimit,
		APIRateWindow: 15 * time.Minute,
	})
	return &testServer{t: t, router: r, store: store, jwt: jwtMgr, audit: sink, twitch: tw}
}

func (s *testServer) token(id domain.Identity) string {
	s.t.Helper()
	tok, err := s.jwt.GenerateToken(id)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var m []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, 0)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRouter_ProfileClickAndStats(t *testing.T) {
	s := newTestServer(t, 0)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/profile-click", "", map[string]string{"login": "nova"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, decode(t, w)["success"])
	}

	w := s.do(http.MethodGet, "/api/profile-stats?login=nova", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["clicks"])
	assert.Equal(t, float64(0), body["salves"])
	assert.Equal(t, float64(0), body["liveCount"])
	assert.Equal(t, float64(0), body["clips"])

	w = s.do(http.MethodGet, "/api/profile-stats?login=ghost", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["clicks"])

	w = s.do(http.MethodPost, "/api/profile-click", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.NotEmpty(t, body["error"])

	w = s.do(http.MethodGet, "/api/profile-stats", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ProfileClickStorageFailureHidesDetail(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.FailOn("streamers.IncrementClicks", errors.New(`duplicate key value violates unique constraint "streamers_login_key"`))

	w := s.do(http.MethodPost, "/api/profile-click", "", map[string]string{"login": "nova"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "streamers_login_key")
	assert.Equal(t, "internal server error", decode(t, w)["error"])
}

func TestRouter_Salve(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.SeedStreamer(domain.Streamer{ID: 7, Login: "viewer"})
	s.store.SeedStreamer(domain.Streamer{ID: 12, Login: "nova", DisplayName: "Nova", Salves: 3})
	tok := s.token(domain.Identity{ID: 7, Login: "viewer"})

	w := s.do(http.MethodPost, "/api/salve", "", map[string]string{"login": "nova"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/salve", tok, map[string]string{"login": "nova"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "nova", body["receiver"])
	assert.Equal(t, "Salve sent to Nova!", body["message"])

	w = s.do(http.MethodPost, "/api/salve", tok, map[string]string{"login": "nova"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["code"])

	row, _ := s.store.Streamer("nova")
	assert.Equal(t, int64(4), row.Salves)
	assert.Len(t, s.store.Salves(), 1)

	w = s.do(http.MethodPost, "/api/salve", tok, map[string]string{"login": "viewer"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPost, "/api/salve", tok, map[string]string{"login": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPost, "/api/salve", tok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_InvalidTokenIsAnonymous(t *testing.T) {
	s := newTestServer(t, 0)
	w := s.do(http.MethodGet, "/api/notifications", "not-a-jwt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/notifications/mark-read", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_NotificationFeed(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.SeedStreamer(domain.Streamer{ID: 1, Login: "boss", IsAdmin: 1})
	admin := s.token(domain.Identity{ID: 1, Login: "boss", IsAdmin: 1})
	viewer := s.token(domain.Identity{ID: 7, Login: "viewer"})

	w := s.do(http.MethodPost, "/api/admin/notifications", admin, map[string]string{"title": "Welcome", "message": "hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["notificationId"])

	w = s.do(http.MethodPost, "/api/admin/quests", admin, map[string]interface{}{"title": "Raid", "reward_points": 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/notifications", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeList(t, w)
	require.Len(t, items, 2)
	assert.Equal(t, "quest-1", items[0]["id"])
	assert.Equal(t, "Welcome", items[1]["title"])
	assert.Equal(t, "🔔", items[1]["icon"])
	assert.Equal(t, false, items[1]["read"])

	w = s.do(http.MethodPost, "/api/notifications/mark-read", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	for i := 0; i < 2; i++ {
		w = s.do(http.MethodPost, "/api/notifications/mark-read", viewer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["success"])
	}
	assert.Equal(t, 1, s.store.ReadCount(7))

	items = decodeList(t, s.do(http.MethodGet, "/api/notifications", viewer, nil))
	assert.Equal(t, false, items[0]["read"], "quest entries stay unread")
	assert.Equal(t, true, items[1]["read"])
}

func TestRouter_AdminGate(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.SeedStreamer(domain.Streamer{ID: 1, Login: "boss", IsAdmin: 1})
	for _, tc := range []struct {
		name  string
		token string
		want  int
	}{
		{"anonymous", "", http.StatusForbidden},
		{"regular user", s.token(domain.Identity{ID: 7, Login: "viewer"}), http.StatusForbidden},
		{"non-canonical flag", s.token(domain.Identity{ID: 8, Login: "odd", IsAdmin: 2}), http.StatusForbidden},
		{"admin", s.token(domain.Identity{ID: 1, Login: "boss", IsAdmin: 1}), http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(http.MethodGet, "/api/admin/cards", tc.token, nil)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])
			}
		})
	}
}

func TestRouter_AdminCards(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.SeedStreamer(domain.Streamer{ID: 1, Login: "boss", IsAdmin: 1})
	admin := s.token(domain.Identity{ID: 1, Login: "boss", IsAdmin: 1})

	w := s.do(http.MethodPost, "/api/admin/cards", admin, map[string]string{"name": "Ember", "rarity": "epic"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	cardID := body["cardId"]

	cards := decodeList(t, s.do(http.MethodGet, "/api/admin/cards", admin, nil))
	require.Len(t, cards, 1)
	assert.Equal(t, cardID, cards[0]["id"])
	assert.Equal(t, "Ember", cards[0]["name"])

	w = s.do(http.MethodPut, "/api/admin/cards/1", admin, map[string]string{"name": "Ember", "rarity": "mythic"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/admin/cards/1", admin, map[string]string{"name": "Ember+", "rarity": "legendary"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/admin/cards/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodDelete, "/api/admin/cards/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/admin/cards/1", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	actions := []string{}
	for _, e := range s.audit.Entries() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete}, actions)
}

func TestRouter_AdminQuests(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.SeedStreamer(domain.Streamer{ID: 1, Login: "boss", IsAdmin: 1})
	admin := s.token(domain.Identity{ID: 1, Login: "boss", IsAdmin: 1})

	w := s.do(http.MethodPost, "/api/admin/quests", admin, map[string]interface{}{"name": "Watch 3 streams", "xp_reward": "50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["questId"])

	w = s.do(http.MethodPost, "/api/admin/quests", admin, map[string]interface{}{"title": "Missing reward"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/admin/quests", admin, map[string]interface{}{"title": "Bad card", "reward_points": 1, "card_reward_id": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/admin/quests/1", admin, map[string]interface{}{"title": "Watch 5 streams", "reward_points": 80, "is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Quest updated", decode(t, w)["message"])

	quests := decodeList(t, s.do(http.MethodGet, "/api/admin/quests", admin, nil))
	require.Len(t, quests, 1)
	assert.Equal(t, "Watch 5 streams", quests[0]["title"])
	assert.Equal(t, float64(80), quests[0]["reward_points"])
	assert.Equal(t, false, quests[0]["is_active"])

	w = s.do(http.MethodDelete, "/api/admin/quests/1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Quest deleted", decode(t, w)["message"])
	w = s.do(http.MethodDelete, "/api/admin/quests/1", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminStreamers(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.SeedStreamer(domain.Streamer{ID: 1, Login: "boss", IsAdmin: 1})
	s.store.SeedStreamer(domain.Streamer{ID: 2, Login: "nova"})
	admin := s.token(domain.Identity{ID: 1, Login: "boss", IsAdmin: 1})

	rows := decodeList(t, s.do(http.MethodGet, "/api/admin/streamers", admin, nil))
	assert.Len(t, rows, 2)

	w := s.do(http.MethodPost, "/api/admin/streamers/2/toggle-admin", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["is_admin"])

	w = s.do(http.MethodPost, "/api/admin/streamers/1/toggle-admin", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RevokedAdminLosesAccess(t *testing.T) {
	s := newTestServer(t, 0)
	s.store.SeedStreamer(domain.Streamer{ID: 1, Login: "boss", IsAdmin: 1})
	s.store.SeedStreamer(domain.Streamer{ID: 2, Login: "nova"})
	boss := s.token(domain.Identity{ID: 1, Login: "boss", IsAdmin: 1})
	nova := s.token(domain.Identity{ID: 2, Login: "nova", IsAdmin: 1})

	w := s.do(http.MethodGet, "/api/admin/cards", nova, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "token flag alone is not enough")

	w = s.do(http.MethodPost, "/api/admin/streamers/2/toggle-admin", boss, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/admin/cards", nova, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/admin/streamers/2/toggle-admin", boss, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["is_admin"])

	w = s.do(http.MethodGet, "/api/admin/cards", nova, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])
}

func TestRouter_TwitchLogin(t *testing.T) {
	s := newTestServer(t, 0)
	s.twitch.users["nova"] = domain.TwitchUser{ID: "99", Login: "nova", DisplayName: "Nova"}
	s.twitch.codes["good"] = "nova"

	w := s.do(http.MethodGet, "/auth/twitch", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "sthq_oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.True(t, stateCookie.HttpOnly)

	// Mismatched state is rejected.
	req := httptest.NewRequest(http.MethodGet, "/auth/twitch/callback?code=good&state=forged", nil)
	req.AddCookie(stateCookie)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/twitch/callback?code=good&state="+url.QueryEscape(state), nil)
	req.AddCookie(stateCookie)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "nova", user["login"])

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(session)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Nova", decode(t, w)["display_name"])

	w = s.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Header().Get("Set-Cookie"), auth.SessionCookie+"="))
}

func TestRouter_APIRateLimit(t *testing.T) {
	s := newTestServer(t, 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/notifications", "", nil).Code)
	}
	w := s.do(http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", "", nil).Code, "non-API routes are not limited")
}
