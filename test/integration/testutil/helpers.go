//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
)

// SeedStreamer inserts a streamer row and returns its id.
func (env *TestEnv) SeedStreamer(login string, isAdmin int) int64 {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id int64
	err := env.Pool.QueryRow(ctx, `
		INSERT INTO streamers (login, display_name, is_admin)
		VALUES ($1, $1, $2)
		RETURNING id`, login, isAdmin).Scan(&id)
	if err != nil {
		env.t.Fatalf("SeedStreamer: %v", err)
	}
	return id
}

// SeedNotification inserts a notification and returns its id.
func (env *TestEnv) SeedNotification(title, message string, at time.Time) int64 {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id int64
	err := env.Pool.QueryRow(ctx, `
		INSERT INTO notifications (title, message, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`, title, message, at).Scan(&id)
	if err != nil {
		env.t.Fatalf("SeedNotification: %v", err)
	}
	return id
}

// BackdateSalves shifts every salve between the pair into the past.
func (env *TestEnv) BackdateSalves(senderID, receiverID int64, by time.Duration) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx, `
		UPDATE salves SET created_at = created_at - make_interval(secs => $3)
		WHERE sender_id = $1 AND receiver_id = $2`, senderID, receiverID, by.Seconds())
	if err != nil {
		env.t.Fatalf("BackdateSalves: %v", err)
	}
}

// Token issues a session token for the given identity.
func (env *TestEnv) Token(id int64, login string, isAdmin int) string {
	env.t.Helper()
	tok, err := env.JWTMgr.GenerateToken(domain.Identity{ID: id, Login: login, IsAdmin: isAdmin})
	if err != nil {
		env.t.Fatalf("Token: %v", err)
	}
	return tok
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	return env.Do(http.MethodGet, path, nil, "")
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	return env.Do(http.MethodGet, path, nil, token)
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	return env.Do(http.MethodPost, path, body, token)
}

// PUT performs a PUT request with optional auth token.
func (env *TestEnv) PUT(path string, body interface{}, token string) *http.Response {
	return env.Do(http.MethodPut, path, body, token)
}

// DELETE performs a DELETE request with optional auth token.
func (env *TestEnv) DELETE(path, token string) *http.Response {
	return env.Do(http.MethodDelete, path, nil, token)
}

// Do sends a JSON request to the test server.
func (env *TestEnv) Do(method, path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("%s %s: encode: %v", method, path, err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("%s %s: new request: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}
