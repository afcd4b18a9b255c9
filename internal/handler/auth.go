package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/service"
)

const (
	stateCookie = "sthq_oauth_state"
	stateTTL    = 10 * time.Minute
)

// AuthHandler handles the Twitch OAuth handshake and session endpoints.
type AuthHandler struct {
	sessions     *service.SessionService
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks cookies Secure.
func NewAuthHandler(sessions *service.SessionService, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, secureCookie: secureCookie, logger: logger}
}

// Login handles GET /auth/twitch.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.sessions.LoginURL(state), http.StatusFound)
}

// Callback handles GET /auth/twitch/callback.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		RespondError(w, domain.ErrValidation("invalid oauth state"))
		return
	}
	h.clear(w, stateCookie, "/auth")

	res, err := h.sessions.CompleteLogin(r.Context(), q.Get("code"))
	if err != nil {
		RespondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info("session started", "streamer_id", res.Identity.ID, "login", res.Identity.Login)
	RespondJSON(w, http.StatusOK, res)
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clear(w, auth.SessionCookie, "/")
	RespondJSON(w, http.StatusOK, OK())
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	st, err := h.sessions.Me(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, st)
}

func (h *AuthHandler) clear(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
