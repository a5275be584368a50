package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbackhub/feedbackhub/internal/metrics"
	"github.com/feedbackhub/feedbackhub/internal/ratelimit"
	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// mockChecker records identifiers and returns a fixed decision.
type mockChecker struct {
	decision ratelimit.Decision
	calls    []string
}

func (m *mockChecker) Check(identifier string) ratelimit.Decision {
	m.calls = append(m.calls, identifier)
	return m.decision
}

func (m *mockChecker) Limit() int {
	return m.decision.Limit
}

func okHandler(called *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called++
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_Allowed(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := ratelimit.New(10, time.Minute, ratelimit.WithClock(clock.Now))

	called := 0
	handler := RateLimit(limiter, RateLimitConfig{Name: "chatbot", Now: clock.Now})(okHandler(&called))

	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", nil)
	req.Header.Set(HeaderXForwardedFor, "1.1.1.1, 2.2.2.2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, called)
	assert.Equal(t, "10", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "9", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "2025-01-01T12:01:00.000Z", rec.Header().Get(HeaderRateLimitReset))
	assert.Empty(t, rec.Header().Get(HeaderRetryAfter))
}

func TestRateLimit_Rejected(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := ratelimit.New(5, time.Minute, ratelimit.WithClock(clock.Now))

	called := 0
	handler := RateLimit(limiter, RateLimitConfig{Name: "feedback", Now: clock.Now})(okHandler(&called))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/feedback", nil)
		req.Header.Set(HeaderXRealIP, "5.5.5.5")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, send().Code)
	}

	clock.Advance(7 * time.Second)
	rejectedBefore := testutil.ToFloat64(metrics.RateLimitDecisionsTotal.WithLabelValues("feedback", "rejected"))

	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 5, called)
	assert.Equal(t, "5", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	assert.Equal(t, "2025-01-01T12:01:00.000Z", rec.Header().Get(HeaderRateLimitReset))
	assert.Equal(t, "53", rec.Header().Get(HeaderRetryAfter))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body RateLimitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Rate limit exceeded", body.Error)
	assert.Equal(t, "Too many requests. Please try again in 53 seconds.", body.Message)
	assert.Equal(t, "2025-01-01T12:01:00.000Z", body.ResetTime)

	assert.Equal(t, rejectedBefore+1, testutil.ToFloat64(metrics.RateLimitDecisionsTotal.WithLabelValues("feedback", "rejected")))
}

func TestRateLimit_RoundsWaitUp(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	checker := &mockChecker{decision: ratelimit.Decision{
		Allowed:   false,
		Limit:     10,
		ResetTime: now.Add(1500 * time.Millisecond),
	}}

	handler := RateLimit(checker, RateLimitConfig{Now: func() time.Time { return now }})(okHandler(new(int)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, "2", rec.Header().Get(HeaderRetryAfter))
}

func TestRateLimit_IdentifierSource(t *testing.T) {
	t.Run("uses context identifier", func(t *testing.T) {
		checker := &mockChecker{decision: ratelimit.Decision{Allowed: true, Limit: 1}}
		handler := ClientID(IdentifierConfig{Fallback: "ctx-fallback"})(
			RateLimit(checker, RateLimitConfig{Identifier: IdentifierConfig{Fallback: "unused"}})(okHandler(new(int))),
		)

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"ctx-fallback"}, checker.calls)
	})

	t.Run("derives identifier without ClientID", func(t *testing.T) {
		checker := &mockChecker{decision: ratelimit.Decision{Allowed: true, Limit: 1}}
		handler := RateLimit(checker, RateLimitConfig{Identifier: IdentifierConfig{Fallback: "default-client"}})(okHandler(new(int)))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"default-client"}, checker.calls)
	})
}

func TestRateLimit_LogsRejection(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	checker := &mockChecker{decision: ratelimit.Decision{Allowed: false, Limit: 3, ResetTime: now.Add(time.Second)}}

	handler := RateLimit(checker, RateLimitConfig{
		Name:   "general",
		Now:    func() time.Time { return now },
		Logger: logger.New(&buf, "debug"),
	})(okHandler(new(int)))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/feedback", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rate limit exceeded", entry["msg"])
	assert.Equal(t, "general", entry["limiter"])
	assert.Equal(t, "/api/feedback", entry["path"])
}

func TestFormatResetTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2025, 3, 4, 14, 5, 6, 789_000_000, loc)

	assert.Equal(t, "2025-03-04T12:05:06.789Z", FormatResetTime(ts))
}
