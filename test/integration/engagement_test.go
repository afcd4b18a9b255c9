//go:build integration

package integration

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Profile clicks ─────────────────────────────────────────────────────────

func TestProfileClick_CreatesStreamerOnFirstClick(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.POST("/api/profile-click", map[string]string{"login": "Nova"}, "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	testutil.AssertCounters(t, env, "nova", 1, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, string(domain.EventProfileClicked)))
}

func TestProfileClick_ConcurrentClicksAreNotLost(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.SeedStreamer("nova", 0)

	const clicks = 25
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := env.POST("/api/profile-click", map[string]string{"login": "nova"}, "")
			resp.Body.Close()
		}()
	}
	wg.Wait()

	testutil.AssertCounters(t, env, "nova", clicks, 0)
}

func TestProfileClick_MissingLogin(t *testing.T) {
	env := testutil.NewTestEnv(t)
	resp := env.POST("/api/profile-click", map[string]string{"login": "  "}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, "VALIDATION_ERROR")
}

func TestProfileStats_UnknownLoginIsZero(t *testing.T) {
	env := testutil.NewTestEnv(t)
	resp := env.GET("/api/profile-stats?login=ghost")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats domain.ProfileStats
	testutil.DecodeJSON(t, resp, &stats)
	assert.Equal(t, domain.ProfileStats{}, stats)
}

// ─── Salves ─────────────────────────────────────────────────────────────────

func TestSalve_Success(t *testing.T) {
	env := testutil.NewTestEnv(t)
	viewerID := env.SeedStreamer("viewer", 0)
	novaID := env.SeedStreamer("nova", 0)
	tok := env.Token(viewerID, "viewer", 0)

	resp := env.POST("/api/salve", map[string]string{"login": "NOVA"}, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		Receiver string `json:"receiver"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "nova", body.Receiver)

	testutil.AssertCounters(t, env, "nova", 0, 1)
	assert.Equal(t, 1, testutil.CountSalves(t, env, viewerID, novaID))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, string(domain.EventSalveSent)))
}

func TestSalve_SecondWithinCooldownIsRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	viewerID := env.SeedStreamer("viewer", 0)
	novaID := env.SeedStreamer("nova", 0)
	tok := env.Token(viewerID, "viewer", 0)

	resp := env.POST("/api/salve", map[string]string{"login": "nova"}, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.POST("/api/salve", map[string]string{"login": "nova"}, tok)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	testutil.AssertErrorCode(t, resp, "RATE_LIMITED")

	testutil.AssertCounters(t, env, "nova", 0, 1)
	assert.Equal(t, 1, testutil.CountSalves(t, env, viewerID, novaID))
}

func TestSalve_AllowedAgainAfterCooldown(t *testing.T) {
	env := testutil.NewTestEnv(t)
	viewerID := env.SeedStreamer("viewer", 0)
	novaID := env.SeedStreamer("nova", 0)
	tok := env.Token(viewerID, "viewer", 0)

	resp := env.POST("/api/salve", map[string]string{"login": "nova"}, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	env.BackdateSalves(viewerID, novaID, 25*time.Hour)

	resp = env.POST("/api/salve", map[string]string{"login": "nova"}, tok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	testutil.AssertCounters(t, env, "nova", 0, 2)
}

func TestSalve_ConcurrentRequestsYieldOneSalve(t *testing.T) {
	env := testutil.NewTestEnv(t)
	viewerID := env.SeedStreamer("viewer", 0)
	novaID := env.SeedStreamer("nova", 0)
	tok := env.Token(viewerID, "viewer", 0)

	const attempts = 10
	statuses := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := env.POST("/api/salve", map[string]string{"login": "nova"}, tok)
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	ok, limited := 0, 0
	for code := range statuses {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, limited)
	assert.Equal(t, 1, testutil.CountSalves(t, env, viewerID, novaID))
	testutil.AssertCounters(t, env, "nova", 0, 1)
}

func TestSalve_DistinctPairsAreIndependent(t *testing.T) {
	env := testutil.NewTestEnv(t)
	aID := env.SeedStreamer("alpha", 0)
	bID := env.SeedStreamer("bravo", 0)
	env.SeedStreamer("nova", 0)

	for _, tok := range []string{env.Token(aID, "alpha", 0), env.Token(bID, "bravo", 0)} {
		resp := env.POST("/api/salve", map[string]string{"login": "nova"}, tok)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	testutil.AssertCounters(t, env, "nova", 0, 2)
}

func TestSalve_Rejections(t *testing.T) {
	env := testutil.NewTestEnv(t)
	viewerID := env.SeedStreamer("viewer", 0)
	tok := env.Token(viewerID, "viewer", 0)

	tests := []struct {
		name   string
		token  string
		login  string
		status int
		code   string
	}{
		{"anonymous", "", "viewer", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"self", tok, "Viewer", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown receiver", tok, "ghost", http.StatusNotFound, "NOT_FOUND"},
		{"empty login", tok, "", http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.POST("/api/salve", map[string]string{"login": tc.login}, tc.token)
			assert.Equal(t, tc.status, resp.StatusCode)
			testutil.AssertErrorCode(t, resp, tc.code)
		})
	}
}
