package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/streamteamhq/platform/internal/domain"
)

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := IdentityFromContext(r.Context()); id != nil {
			w.Header().Set("X-Login", id.Login)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentify(t *testing.T) {
	mgr := newTestJWTManager()
	token, err := mgr.GenerateToken(domain.Identity{ID: 7, Login: "nova"})
	require.NoError(t, err)
	h := Identify(mgr)(identityEcho())

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "nova", rec.Header().Get("X-Login"))
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "nova", rec.Header().Get("X-Login"))
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Login"))
	})

	t.Run("expired token is anonymous", func(t *testing.T) {
		old := NewJWTManager("test-secret-key", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		stale, err := old.GenerateToken(domain.Identity{ID: 7, Login: "nova"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+stale)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("X-Login"))
	})
}

func TestRequireSession(t *testing.T) {
	h := RequireSession(identityEcho())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/salve", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"code":"UNAUTHORIZED","error":"authentication required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/salve", nil)
	req = req.WithContext(WithIdentity(req.Context(), &domain.Identity{ID: 1, Login: "a"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type stubAdmins struct {
	flags map[int64]bool
	err   error
}

func (s stubAdmins) IsAdmin(_ context.Context, id int64) (bool, error) {
	return s.flags[id], s.err
}

func TestRequireAdmin_StrictEquality(t *testing.T) {
	h := RequireAdmin(stubAdmins{flags: map[int64]bool{1: true}})(identityEcho())

	tests := []struct {
		name string
		id   *domain.Identity
		want int
	}{
		{"anonymous", nil, http.StatusForbidden},
		{"not admin", &domain.Identity{ID: 1, IsAdmin: 0}, http.StatusForbidden},
		{"truthy but not one", &domain.Identity{ID: 1, IsAdmin: 2}, http.StatusForbidden},
		{"admin", &domain.Identity{ID: 1, IsAdmin: 1}, http.StatusOK},
		{"revoked since login", &domain.Identity{ID: 2, IsAdmin: 1}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/cards", nil)
			if tt.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.id))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireAdmin_LookupFailure(t *testing.T) {
	h := RequireAdmin(stubAdmins{err: errors.New("connection refused")})(identityEcho())
	req := httptest.NewRequest(http.MethodGet, "/api/admin/cards", nil)
	req = req.WithContext(WithIdentity(req.Context(), &domain.Identity{ID: 1, IsAdmin: 1}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
