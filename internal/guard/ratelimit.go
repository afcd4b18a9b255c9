package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streamteamhq/platform/internal/domain"
)

// sweepThreshold is the key count above which idle windows are dropped.
const sweepThreshold = 10000

// RateLimiter implements a sliding window rate limiter keyed by client.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with the given limit per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Limit returns the number of requests allowed per window.
func (rl *RateLimiter) Limit() int { return rl.limit }

// Check records a hit for key and reports whether it is within the limit.
// Rejected hits are not recorded.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.windows) > sweepThreshold {
		rl.sweep(now)
	}

	valid := rl.prune(key, now)
	if len(valid) >= rl.limit {
		rl.windows[key] = valid
		return domain.GuardResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("rate limit exceeded: %d/%s", rl.limit, rl.window),
			Guard:      "rate_limiter",
			RetryAfter: valid[0].Add(rl.window).Sub(now),
		}
	}

	rl.windows[key] = append(valid, now)
	return domain.GuardResult{Allowed: true}
}

// Remaining returns how many more hits key may make in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	valid := rl.prune(key, rl.now())
	if len(valid) == 0 {
		delete(rl.windows, key)
	} else {
		rl.windows[key] = valid
	}
	n := rl.limit - len(valid)
	if n < 0 {
		return 0
	}
	return n
}

// prune returns the hits of key still inside the window. Hits are stored in
// order, so the live ones are a suffix; the stored slice is never rewritten.
// Caller holds mu.
func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	entries := rl.windows[key]
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	return entries[i:]
}

// sweep removes keys with no hits inside the window. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-rl.window)
	for key, entries := range rl.windows {
		if len(entries) == 0 || !entries[len(entries)-1].After(cutoff) {
			delete(rl.windows, key)
		}
	}
}
