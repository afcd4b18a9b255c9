package domain

import "time"

// GuardResult is the outcome of a guard check.
type GuardResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Guard   string `json:"guard,omitempty"` // which guard blocked
	// RetryAfter is how long the caller should wait before trying again.
	RetryAfter time.Duration `json:"-"`
}
