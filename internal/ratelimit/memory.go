package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FixedWindow implements an in-memory fixed window rate limiter.
// Each identifier gets its own window that starts on its first request
// and resets completely once the window has elapsed.
type FixedWindow struct {
	name           string
	limit          int
	window         time.Duration
	sweepThreshold int
	now            func() time.Time
	onSweep        func(name string, removed, remaining int)
	onSize         func(name string, entries int)

	mu      sync.Mutex
	entries map[string]*entry
}

// entry tracks the admitted requests of one identifier in its current window.
type entry struct {
	count   int
	resetAt time.Time
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

// WithSweepThreshold sets the entry count that triggers a sweep inside Check.
func WithSweepThreshold(n int) Option {
	return func(f *FixedWindow) { f.sweepThreshold = n }
}

// WithName labels the limiter for logs and metrics.
func WithName(name string) Option {
	return func(f *FixedWindow) { f.name = name }
}

// WithSweepHook registers a callback run after every sweep that removed
// entries. It receives the limiter name, the removed count and the entries left.
// The callback runs with the limiter lock held and must not call back into it.
func WithSweepHook(fn func(name string, removed, remaining int)) Option {
	return func(f *FixedWindow) { f.onSweep = fn }
}

// WithSizeHook registers a callback run whenever the number of tracked
// identifiers changes. Like the sweep hook it runs with the lock held.
func WithSizeHook(fn func(name string, entries int)) Option {
	return func(f *FixedWindow) { f.onSize = fn }
}

// New creates a fixed window limiter admitting limit requests per window.
// It panics if limit or window is not positive.
func New(limit int, window time.Duration, opts ...Option) *FixedWindow {
	if limit <= 0 {
		panic(fmt.Sprintf("ratelimit: limit must be positive, got %d", limit))
	}
	if window <= 0 {
		panic(fmt.Sprintf("ratelimit: window must be positive, got %s", window))
	}

	f := &FixedWindow{
		limit:          limit,
		window:         window,
		sweepThreshold: DefaultSweepThreshold,
		now:            time.Now,
		entries:        make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig creates a fixed window limiter from a Config.
func NewFromConfig(cfg Config, opts ...Option) *FixedWindow {
	return New(cfg.Requests, cfg.Window, opts...)
}

// Check records a request for identifier and reports whether it is admitted.
// A rejected request does not consume quota.
func (f *FixedWindow) Check(identifier string) Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.reportSizeLocked(len(f.entries))

	now := f.now()

	if len(f.entries) > f.sweepThreshold {
		f.sweepLocked(now)
	}

	e, ok := f.entries[identifier]
	if !ok || !now.Before(e.resetAt) {
		resetAt := now.Add(f.window)
		f.entries[identifier] = &entry{count: 1, resetAt: resetAt}
		return Decision{
			Allowed:   true,
			Remaining: f.limit - 1,
			ResetTime: resetAt,
			Limit:     f.limit,
		}
	}

	if e.count >= f.limit {
		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetTime: e.resetAt,
			Limit:     f.limit,
		}
	}

	e.count++

	return Decision{
		Allowed:   true,
		Remaining: f.limit - e.count,
		ResetTime: e.resetAt,
		Limit:     f.limit,
	}
}

// Reset clears the rate limit state for an identifier.
func (f *FixedWindow) Reset(identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.reportSizeLocked(len(f.entries))
	delete(f.entries, identifier)
}

// Clear removes every tracked identifier.
func (f *FixedWindow) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.reportSizeLocked(len(f.entries))
	clear(f.entries)
}

// Sweep removes all entries whose window has ended and returns how many were removed.
func (f *FixedWindow) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.reportSizeLocked(len(f.entries))
	return f.sweepLocked(f.now())
}

func (f *FixedWindow) sweepLocked(now time.Time) int {
	removed := 0
	for id, e := range f.entries {
		if !now.Before(e.resetAt) {
			delete(f.entries, id)
			removed++
		}
	}
	if removed > 0 && f.onSweep != nil {
		f.onSweep(f.name, removed, len(f.entries))
	}
	return removed
}

// reportSizeLocked calls the size hook when the entry count differs from before.
func (f *FixedWindow) reportSizeLocked(before int) {
	if f.onSize != nil && len(f.entries) != before {
		f.onSize(f.name, len(f.entries))
	}
}

// Len returns the number of tracked identifiers, expired ones included.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Limit returns the maximum admitted requests per window.
func (f *FixedWindow) Limit() int {
	return f.limit
}

// Window returns the window length.
func (f *FixedWindow) Window() time.Duration {
	return f.window
}

// Name returns the limiter label, empty when unset.
func (f *FixedWindow) Name() string {
	return f.name
}

// RunJanitor sweeps expired entries every interval until ctx is done.
// It blocks; run it in its own goroutine.
func (f *FixedWindow) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Sweep()
		}
	}
}
