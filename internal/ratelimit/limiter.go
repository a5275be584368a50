// Package ratelimit provides per-identifier fixed-window rate limiting.
package ratelimit

import (
	"time"
)

// DefaultSweepThreshold is the entry count above which Check sweeps expired
// entries before deciding.
const DefaultSweepThreshold = 10000

// Decision contains the outcome of a rate limit check.
type Decision struct {
	Allowed   bool      // Whether the request is admitted
	Remaining int       // Requests left in the current window
	ResetTime time.Time // When the current window ends
	Limit     int       // The configured limit
}

// RetryAfter returns the time left until the window resets, never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.ResetTime.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// RetryAfterSeconds returns the wait rounded up to whole seconds.
// A rejected decision always reports at least one second.
func (d Decision) RetryAfterSeconds(now time.Time) int {
	wait := d.RetryAfter(now)
	secs := int(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	if !d.Allowed && secs < 1 {
		secs = 1
	}
	return secs
}

// Checker is the limiter surface consumed by HTTP middleware.
type Checker interface {
	// Check records a request for identifier and reports whether it is admitted.
	Check(identifier string) Decision

	// Limit returns the maximum admitted requests per window.
	Limit() int
}

// Config holds rate limiter configuration.
type Config struct {
	Requests int           // Maximum requests per window
	Window   time.Duration // Fixed window length
}

// Predefined limits for the protected endpoint categories.
var (
	ChatbotConfig  = Config{Requests: 10, Window: time.Minute}
	FeedbackConfig = Config{Requests: 5, Window: time.Minute}
	GeneralConfig  = Config{Requests: 30, Window: time.Minute}
)
