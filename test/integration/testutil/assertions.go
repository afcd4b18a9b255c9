//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"error"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (error: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertCounters checks the stored click and salve counters for a login.
func AssertCounters(t *testing.T, env *TestEnv, login string, clicks, salves int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var c, s int64
	err := env.Pool.QueryRow(ctx,
		"SELECT clicks, salves FROM streamers WHERE login = $1", login).Scan(&c, &s)
	if err != nil {
		t.Fatalf("AssertCounters: query: %v", err)
	}
	if c != clicks {
		t.Errorf("clicks: expected %d, got %d", clicks, c)
	}
	if s != salves {
		t.Errorf("salves: expected %d, got %d", salves, s)
	}
}

// CountSalves returns the number of salve rows between a pair.
func CountSalves(t *testing.T, env *TestEnv, senderID, receiverID int64) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM salves WHERE sender_id = $1 AND receiver_id = $2",
		senderID, receiverID).Scan(&count)
	if err != nil {
		t.Fatalf("CountSalves: %v", err)
	}
	return count
}

// CountOutboxEvents returns the number of outbox events of a type.
func CountOutboxEvents(t *testing.T, env *TestEnv, eventType string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM event_outbox WHERE event_type = $1", eventType).Scan(&count)
	if err != nil {
		t.Fatalf("CountOutboxEvents: %v", err)
	}
	return count
}

// CountReadRows returns the user_notifications rows for a user.
func CountReadRows(t *testing.T, env *TestEnv, userID int64) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM user_notifications WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		t.Fatalf("CountReadRows: %v", err)
	}
	return count
}
