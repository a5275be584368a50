package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/feedbackhub/feedbackhub/internal/metrics"
	"github.com/feedbackhub/feedbackhub/internal/ratelimit"
	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// ResetTimeFormat renders reset times as UTC ISO-8601 with milliseconds.
const ResetTimeFormat = "2006-01-02T15:04:05.000Z"

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	Name       string           // Limiter label for metrics and logs
	Identifier IdentifierConfig // Used when ClientID did not run upstream
	Now        func() time.Time // Clock for Retry-After; defaults to time.Now
	Logger     *logger.Logger
}

// RateLimitResponse is the JSON response for rate limited requests.
type RateLimitResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	ResetTime string `json:"resetTime"`
}

// RateLimit returns a middleware that admits or rejects requests with the
// given limiter. Rejections are answered with 429 and never reach next.
func RateLimit(limiter ratelimit.Checker, cfg RateLimitConfig) Middleware {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := GetClientID(r.Context())
			if identifier == "" {
				identifier = Identify(r, cfg.Identifier)
			}

			decision := limiter.Check(identifier)
			metrics.RecordRateLimitDecision(cfg.Name, decision.Allowed)

			setRateLimitHeaders(w, decision)

			if !decision.Allowed {
				wait := decision.RetryAfterSeconds(now())
				log.Warn("rate limit exceeded",
					"limiter", cfg.Name,
					"client", identifier,
					"path", r.URL.Path,
					"retry_after", wait,
					"request_id", GetRequestID(r.Context()),
				)
				writeRateLimitResponse(w, decision, wait)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// FormatResetTime renders t in ResetTimeFormat.
func FormatResetTime(t time.Time) string {
	return t.UTC().Format(ResetTimeFormat)
}

// setRateLimitHeaders sets the quota headers shared by both outcomes.
func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	w.Header().Set(HeaderRateLimitReset, FormatResetTime(d.ResetTime))
}

// writeRateLimitResponse writes the 429 response.
func writeRateLimitResponse(w http.ResponseWriter, d ratelimit.Decision, wait int) {
	w.Header().Set(HeaderRetryAfter, strconv.Itoa(wait))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	_ = json.NewEncoder(w).Encode(RateLimitResponse{
		Error:     "Rate limit exceeded",
		Message:   fmt.Sprintf("Too many requests. Please try again in %d seconds.", wait),
		ResetTime: FormatResetTime(d.ResetTime),
	})
}
