package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestFixedWindow_Check(t *testing.T) {
	t.Run("admits up to limit then rejects", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(10, time.Minute, WithClock(clock.Now))
		t0 := clock.Now()

		for i := 0; i < 10; i++ {
			d := limiter.Check("1.2.3.4")
			assert.True(t, d.Allowed, "request %d should be allowed", i+1)
			assert.Equal(t, 9-i, d.Remaining)
			assert.Equal(t, t0.Add(time.Minute), d.ResetTime)
			assert.Equal(t, 10, d.Limit)
		}

		d := limiter.Check("1.2.3.4")
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, t0.Add(time.Minute), d.ResetTime)
	})

	t.Run("fresh window after reset time", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(10, time.Minute, WithClock(clock.Now))
		t0 := clock.Now()

		for i := 0; i < 11; i++ {
			limiter.Check("1.2.3.4")
		}

		clock.Advance(60001 * time.Millisecond)

		d := limiter.Check("1.2.3.4")
		assert.True(t, d.Allowed)
		assert.Equal(t, 9, d.Remaining)
		assert.Equal(t, t0.Add(60001*time.Millisecond).Add(time.Minute), d.ResetTime)
	})

	t.Run("window expires exactly at reset time", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(1, time.Second, WithClock(clock.Now))

		first := limiter.Check("a")
		require.True(t, first.Allowed)
		assert.False(t, limiter.Check("a").Allowed)

		clock.Advance(time.Second)

		d := limiter.Check("a")
		assert.True(t, d.Allowed)
		assert.True(t, d.ResetTime.After(first.ResetTime))
	})

	t.Run("rejection does not consume quota", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(2, time.Minute, WithClock(clock.Now))

		limiter.Check("a")
		limiter.Check("a")

		clock.Advance(10 * time.Second)
		first := limiter.Check("a")
		clock.Advance(10 * time.Second)
		second := limiter.Check("a")

		assert.False(t, first.Allowed)
		assert.Equal(t, first, second)
	})

	t.Run("identifiers are independent", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(3, time.Minute, WithClock(clock.Now))

		for i := 0; i < 5; i++ {
			limiter.Check("A")
		}

		clock.Advance(5 * time.Second)
		d := limiter.Check("B")
		assert.True(t, d.Allowed)
		assert.Equal(t, 2, d.Remaining)
		assert.Equal(t, clock.Now().Add(time.Minute), d.ResetTime)
	})

	t.Run("distinct instances share no state", func(t *testing.T) {
		clock := newFakeClock()
		chatbot := New(1, time.Minute, WithClock(clock.Now))
		feedback := New(1, time.Minute, WithClock(clock.Now))

		assert.True(t, chatbot.Check("a").Allowed)
		assert.False(t, chatbot.Check("a").Allowed)
		assert.True(t, feedback.Check("a").Allowed)
	})

	t.Run("opaque identifiers", func(t *testing.T) {
		limiter := New(1, time.Minute)

		assert.True(t, limiter.Check("not an ip, at all").Allowed)
		assert.True(t, limiter.Check("").Allowed)
		assert.False(t, limiter.Check("").Allowed)
	})
}

func TestFixedWindow_AdmissionBound(t *testing.T) {
	clock := newFakeClock()
	limiter := New(5, time.Minute, WithClock(clock.Now))

	allowed := 0
	for i := 0; i < 50; i++ {
		clock.Advance(time.Second)
		if limiter.Check("x").Allowed {
			allowed++
		}
	}

	// 50 seconds stays inside the first window.
	assert.Equal(t, 5, allowed)
}

func TestFixedWindow_FeedbackRetryAfter(t *testing.T) {
	clock := newFakeClock()
	limiter := NewFromConfig(FeedbackConfig, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Check("10.0.0.1").Allowed)
		clock.Advance(1500 * time.Millisecond)
	}

	d := limiter.Check("10.0.0.1")
	require.False(t, d.Allowed)

	secs := d.RetryAfterSeconds(clock.Now())
	assert.Greater(t, secs, 0)
	assert.LessOrEqual(t, secs, 60)
	// 7.5s elapsed of a 60s window.
	assert.Equal(t, 53, secs)
}

func TestDecision_RetryAfterSeconds(t *testing.T) {
	now := time.UnixMilli(1_000_000)

	tests := []struct {
		name     string
		decision Decision
		want     int
	}{
		{"rounds up partial seconds", Decision{Allowed: false, ResetTime: now.Add(1200 * time.Millisecond)}, 2},
		{"exact seconds", Decision{Allowed: false, ResetTime: now.Add(3 * time.Second)}, 3},
		{"rejected never below one", Decision{Allowed: false, ResetTime: now}, 1},
		{"admitted past reset is zero", Decision{Allowed: true, ResetTime: now.Add(-time.Second)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.decision.RetryAfterSeconds(now))
		})
	}
}

func TestFixedWindow_Reset(t *testing.T) {
	t.Run("reset behaves like a never-seen identifier", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(3, time.Minute, WithClock(clock.Now))

		for i := 0; i < 4; i++ {
			limiter.Check("a")
		}
		clock.Advance(20 * time.Second)

		limiter.Reset("a")

		d := limiter.Check("a")
		assert.True(t, d.Allowed)
		assert.Equal(t, 2, d.Remaining)
		assert.Equal(t, clock.Now().Add(time.Minute), d.ResetTime)
	})

	t.Run("reset of unknown identifier is a no-op", func(t *testing.T) {
		limiter := New(3, time.Minute)
		limiter.Check("a")

		limiter.Reset("missing")
		limiter.Reset("missing")

		assert.Equal(t, 1, limiter.Len())
	})
}

func TestFixedWindow_Clear(t *testing.T) {
	limiter := New(1, time.Minute)
	limiter.Check("a")
	limiter.Check("b")
	require.Equal(t, 2, limiter.Len())

	limiter.Clear()
	limiter.Clear()

	assert.Equal(t, 0, limiter.Len())
	assert.True(t, limiter.Check("a").Allowed)
}

func TestFixedWindow_Sweep(t *testing.T) {
	t.Run("removes only expired entries", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(1, time.Minute, WithClock(clock.Now))

		limiter.Check("old")
		clock.Advance(30 * time.Second)
		limiter.Check("new")
		clock.Advance(30 * time.Second)

		assert.Equal(t, 1, limiter.Sweep())
		assert.Equal(t, 1, limiter.Len())
		assert.False(t, limiter.Check("new").Allowed)
	})

	t.Run("check sweeps once above threshold", func(t *testing.T) {
		clock := newFakeClock()
		var swept int
		limiter := New(1, time.Minute,
			WithClock(clock.Now),
			WithSweepThreshold(3),
			WithSweepHook(func(_ string, n, _ int) { swept += n }),
		)

		for i := 0; i < 4; i++ {
			limiter.Check(strconv.Itoa(i))
		}
		require.Equal(t, 4, limiter.Len())

		clock.Advance(time.Minute)
		limiter.Check("fresh")

		assert.Equal(t, 4, swept)
		assert.Equal(t, 1, limiter.Len())
	})

	t.Run("no sweep at or below threshold", func(t *testing.T) {
		clock := newFakeClock()
		limiter := New(1, time.Minute, WithClock(clock.Now), WithSweepThreshold(3))

		for i := 0; i < 3; i++ {
			limiter.Check(strconv.Itoa(i))
		}
		clock.Advance(time.Minute)
		limiter.Check("fresh")

		assert.Equal(t, 4, limiter.Len())
	})
}

func TestFixedWindow_SizeHook(t *testing.T) {
	clock := newFakeClock()
	var (
		sizes []int
		names []string
	)
	limiter := New(2, time.Minute,
		WithName(NameGeneral),
		WithClock(clock.Now),
		WithSizeHook(func(name string, n int) {
			names = append(names, name)
			sizes = append(sizes, n)
		}),
	)

	limiter.Check("a")
	limiter.Check("a")
	limiter.Check("a") // rejected, size unchanged
	limiter.Check("b")
	limiter.Check("c")
	assert.Equal(t, []int{1, 2, 3}, sizes)

	limiter.Reset("b")
	limiter.Reset("b") // already gone
	assert.Equal(t, []int{1, 2, 3, 2}, sizes)

	clock.Advance(time.Minute)
	limiter.Check("a") // expired window replaced in place
	assert.Equal(t, 2, sizes[len(sizes)-1])
	assert.Len(t, sizes, 4)

	assert.Equal(t, 1, limiter.Sweep())
	limiter.Clear()
	assert.Equal(t, []int{1, 2, 3, 2, 1, 0}, sizes)

	for _, name := range names {
		assert.Equal(t, NameGeneral, name)
	}
}

func TestFixedWindow_RunJanitor(t *testing.T) {
	limiter := New(1, 10*time.Millisecond)
	limiter.Check("a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestNew_PanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { New(0, time.Minute) })
	assert.Panics(t, func() { New(1, 0) })
}

func TestFixedWindow_Concurrency(t *testing.T) {
	t.Run("handles concurrent requests safely", func(t *testing.T) {
		limiter := New(100, time.Minute)

		var wg sync.WaitGroup
		var allowed int64

		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Check("192.168.1.1").Allowed {
					atomic.AddInt64(&allowed, 1)
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, int64(100), allowed, "exactly limit requests should be allowed")
	})

	t.Run("handles concurrent requests for different identifiers", func(t *testing.T) {
		limiter := New(10, time.Minute)

		var wg sync.WaitGroup
		var totalAllowed int64

		for id := 0; id < 10; id++ {
			identifier := string(rune('A' + id))
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					if limiter.Check(id).Allowed {
						atomic.AddInt64(&totalAllowed, 1)
					}
				}(identifier)
			}
		}

		wg.Wait()

		assert.Equal(t, int64(100), totalAllowed)
	})

	t.Run("reset and clear race with check", func(t *testing.T) {
		limiter := New(5, time.Minute)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(3)
			go func() { defer wg.Done(); limiter.Check("a") }()
			go func() { defer wg.Done(); limiter.Reset("a") }()
			go func() { defer wg.Done(); limiter.Clear() }()
		}
		wg.Wait()

		assert.LessOrEqual(t, limiter.Len(), 1)
	})
}

func TestRegistry(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(ChatbotConfig, FeedbackConfig, GeneralConfig, WithClock(clock.Now))

	assert.Equal(t, NameChatbot, reg.Chatbot.Name())
	assert.Equal(t, 10, reg.Chatbot.Limit())
	assert.Equal(t, 5, reg.Feedback.Limit())
	assert.Equal(t, 30, reg.General.Limit())
	assert.Equal(t, time.Minute, reg.General.Window())

	for i := 0; i < 5; i++ {
		reg.Feedback.Check("a")
	}
	assert.False(t, reg.Feedback.Check("a").Allowed)
	assert.Equal(t, 9, reg.Chatbot.Check("a").Remaining)

	reg.Clear()
	for _, l := range reg.All() {
		assert.Equal(t, 0, l.Len())
	}
}
