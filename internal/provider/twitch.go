package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/streamteamhq/platform/internal/domain"
	"github.com/streamteamhq/platform/internal/guard"
)

const (
	// helixBatchSize is the maximum number of logins per Helix streams query.
	helixBatchSize = 100
	userCacheSize  = 512
	userCacheTTL   = 10 * time.Minute
	tokenLeeway    = time.Minute
)

var (
	// ErrCircuitOpen is returned while an endpoint's breaker is open.
	ErrCircuitOpen = errors.New("twitch: circuit open")
	// ErrNotConfigured is returned when client credentials are missing.
	ErrNotConfigured = errors.New("twitch: client credentials not configured")
)

// TwitchConfig holds the Helix client settings.
type TwitchConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIURL       string // e.g. https://api.twitch.tv/helix
	AuthURL      string // e.g. https://id.twitch.tv/oauth2
}

type cachedUser struct {
	user      *domain.TwitchUser
	fetchedAt time.Time
}

// TwitchClient calls the Twitch Helix API with an app access token.
type TwitchClient struct {
	cfg     TwitchConfig
	logger  *slog.Logger
	client  *http.Client
	breaker *guard.CircuitBreaker
	users   *lru.Cache
	now     func() time.Time

	mu       sync.Mutex
	appToken string
	tokenExp time.Time
}

// NewTwitchClient creates a Helix client with a 5s timeout and a per-endpoint
// circuit breaker.
func NewTwitchClient(cfg TwitchConfig, logger *slog.Logger) (*TwitchClient, error) {
	users, err := lru.New(userCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create user cache: %w", err)
	}
	return &TwitchClient{
		cfg:     cfg,
		logger:  logger,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: guard.NewCircuitBreaker(5, 30*time.Second),
		users:   users,
		now:     time.Now,
	}, nil
}

// AuthorizeURL returns the OAuth authorize URL carrying state.
func (c *TwitchClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "user:read:email")
	q.Set("state", state)
	return c.cfg.AuthURL + "/authorize?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode trades an authorization code for a user access token.
func (c *TwitchClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.cfg.RedirectURL)

	tok, err := c.postToken(ctx, form)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	return tok.AccessToken, nil
}

// CurrentUser returns the user owning a user access token.
func (c *TwitchClient) CurrentUser(ctx context.Context, userToken string) (*domain.TwitchUser, error) {
	var resp struct {
		Data []domain.TwitchUser `json:"data"`
	}
	if err := c.get(ctx, "users", nil, userToken, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("twitch: token has no user")
	}
	return &resp.Data[0], nil
}

// GetUser looks up a user by login. Returns nil, nil when Twitch has no such
// user. Results, including misses, are cached for ten minutes.
func (c *TwitchClient) GetUser(ctx context.Context, login string) (*domain.TwitchUser, error) {
	login = domain.NormalizeLogin(login)
	if v, ok := c.users.Get(login); ok {
		entry := v.(cachedUser)
		if c.now().Sub(entry.fetchedAt) < userCacheTTL {
			return entry.user, nil
		}
		c.users.Remove(login)
	}

	token, err := c.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []domain.TwitchUser `json:"data"`
	}
	if err := c.get(ctx, "users", url.Values{"login": {login}}, token, &resp); err != nil {
		return nil, err
	}

	var user *domain.TwitchUser
	if len(resp.Data) > 0 {
		user = &resp.Data[0]
	}
	c.users.Add(login, cachedUser{user: user, fetchedAt: c.now()})
	return user, nil
}

// GetStreams returns the live streams among logins, querying in batches of 100.
func (c *TwitchClient) GetStreams(ctx context.Context, logins []string) ([]domain.TwitchStream, error) {
	if len(logins) == 0 {
		return nil, nil
	}
	token, err := c.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var live []domain.TwitchStream
	for start := 0; start < len(logins); start += helixBatchSize {
		end := start + helixBatchSize
		if end > len(logins) {
			end = len(logins)
		}
		q := url.Values{}
		for _, l := range logins[start:end] {
			q.Add("user_login", l)
		}
		var resp struct {
			Data []domain.TwitchStream `json:"data"`
		}
		if err := c.get(ctx, "streams", q, token, &resp); err != nil {
			return nil, err
		}
		live = append(live, resp.Data...)
	}
	return live, nil
}

// GetClips returns up to first clips for a broadcaster.
func (c *TwitchClient) GetClips(ctx context.Context, broadcasterID string, first int) ([]domain.TwitchClip, error) {
	token, err := c.appAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("first", strconv.Itoa(first))
	var resp struct {
		Data []domain.TwitchClip `json:"data"`
	}
	if err := c.get(ctx, "clips", q, token, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// appAccessToken returns the cached client-credentials token, refreshing it
// one minute before expiry.
func (c *TwitchClient) appAccessToken(ctx context.Context) (string, error) {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.appToken != "" && c.now().Before(c.tokenExp.Add(-tokenLeeway)) {
		return c.appToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")
	tok, err := c.postToken(ctx, form)
	if err != nil {
		return "", fmt.Errorf("app access token: %w", err)
	}
	c.appToken = tok.AccessToken
	c.tokenExp = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Debug("twitch app token refreshed", "expires_at", c.tokenExp)
	return c.appToken, nil
}

func (c *TwitchClient) invalidateAppToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.appToken == token {
		c.appToken = ""
	}
}

func (c *TwitchClient) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access_token")
	}
	return &tok, nil
}

// get performs a Helix GET guarded by the endpoint's circuit breaker.
func (c *TwitchClient) get(ctx context.Context, endpoint string, q url.Values, token string, out any) error {
	key := "helix." + endpoint
	if res := c.breaker.Check(ctx, key); !res.Allowed {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, res.Reason)
	}

	u := c.cfg.APIURL + "/" + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Client-Id", c.cfg.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.breaker.RecordFailure(key)
		return fmt.Errorf("helix %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateAppToken(token)
		return fmt.Errorf("helix %s: unauthorized", endpoint)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		c.breaker.RecordFailure(key)
		return fmt.Errorf("helix %s returned %d", endpoint, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		c.breaker.RecordSuccess(key)
		return fmt.Errorf("helix %s returned %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.breaker.RecordFailure(key)
		return fmt.Errorf("decode helix %s: %w", endpoint, err)
	}
	c.breaker.RecordSuccess(key)
	return nil
}
