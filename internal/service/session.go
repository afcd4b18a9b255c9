package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/streamteamhq/platform/internal/auth"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/repository"
)

// TwitchLogin is the OAuth side of the Helix client.
type TwitchLogin interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	CurrentUser(ctx context.Context, userToken string) (*domain.TwitchUser, error)
}

// SessionService turns a Twitch OAuth login into a session token.
type SessionService struct {
	db     repository.DBTX
	repos  repository.Repositories
	twitch TwitchLogin
	jwtMgr *auth.JWTManager
	logger *slog.Logger
	now    Clock
}

// NewSessionService creates a SessionService.
func NewSessionService(db repository.DBTX, repos repository.Repositories, twitch TwitchLogin, jwtMgr *auth.JWTManager, logger *slog.Logger) *SessionService {
	return &SessionService{db: db, repos: repos, twitch: twitch, jwtMgr: jwtMgr, logger: logger, now: time.Now}
}

// SessionResult is returned on a successful login.
type SessionResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Identity  domain.Identity `json:"user"`
}

// LoginURL returns the Twitch authorize URL for state.
func (s *SessionService) LoginURL(state string) string {
	return s.twitch.AuthorizeURL(state)
}

// CompleteLogin exchanges the OAuth code, upserts the streamer and issues a
// session token.
func (s *SessionService) CompleteLogin(ctx context.Context, code string) (*SessionResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrValidation("code is required")
	}

	userToken, err := s.twitch.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Warn("twitch code exchange failed", "error", err)
		return nil, domain.ErrUnauthorized("twitch authorization failed")
	}
	user, err := s.twitch.CurrentUser(ctx, userToken)
	if err != nil {
		s.logger.Warn("twitch user fetch failed", "error", err)
		return nil, domain.ErrUpstream("twitch is unavailable", err)
	}

	streamer, err := s.repos.Streamers.UpsertFromTwitch(ctx, s.db, *user)
	if err != nil {
		return nil, storageFailure(s.logger, "upsert streamer", err)
	}

	id := domain.Identity{ID: streamer.ID, Login: streamer.Login, IsAdmin: streamer.IsAdmin}
	token, err := s.jwtMgr.GenerateToken(id)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}
	s.logger.Info("streamer logged in", "streamer_id", id.ID, "login", id.Login)
	return &SessionResult{
		Token:     token,
		ExpiresAt: s.now().Add(s.jwtMgr.Expiry()).UTC(),
		Identity:  id,
	}, nil
}

// Me returns the caller's stored streamer row.
func (s *SessionService) Me(ctx context.Context, id *domain.Identity) (*domain.Streamer, error) {
	if id == nil {
		return nil, domain.ErrUnauthorized("authentication required")
	}
	st, err := s.repos.Streamers.FindByID(ctx, s.db, id.ID)
	if err != nil {
		return nil, storageFailure(s.logger, "load current streamer", err)
	}
	if st == nil {
		return nil, domain.ErrNotFound("streamer", strconv.FormatInt(id.ID, 10))
	}
	return st, nil
}
