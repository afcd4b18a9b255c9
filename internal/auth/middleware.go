package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/streamteamhq/platform/internal/domain"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "sthq_session"

type contextKey string

const identityKey contextKey = "auth_identity"

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey).(*domain.Identity)
	return id
}

// Identify resolves the caller from a Bearer token or the session cookie.
// Missing or invalid tokens leave the request anonymous.
func Identify(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := jwtMgr.ValidateToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := claims.Identity()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			writeError(w, domain.ErrUnauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminChecker reports the stored admin flag of a streamer. The flag in the
// session token can be stale, so admin routes consult the store.
type AdminChecker interface {
	IsAdmin(ctx context.Context, id int64) (bool, error)
}

// RequireAdmin rejects with 403 every caller whose token or stored is_admin
// is not exactly 1, anonymous callers included.
func RequireAdmin(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if !id.Admin() {
				writeError(w, domain.ErrForbidden("admin access required"))
				return
			}
			ok, err := checker.IsAdmin(r.Context(), id.ID)
			if err != nil {
				writeError(w, domain.ErrInternal("internal server error", err))
				return
			}
			if !ok {
				writeError(w, domain.ErrForbidden("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, err *domain.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	json.NewEncoder(w).Encode(err)
}
