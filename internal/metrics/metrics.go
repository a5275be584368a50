// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks in-flight requests.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// RateLimitDecisionsTotal counts limiter verdicts per limiter.
	RateLimitDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limit decisions by limiter and outcome",
		},
		[]string{"limiter", "outcome"},
	)

	// RateLimitSweptTotal counts expired entries removed by sweeps.
	RateLimitSweptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_swept_total",
			Help: "Expired rate limit entries removed by sweeps",
		},
		[]string{"limiter"},
	)

	// RateLimitEntries reports tracked identifiers per limiter.
	RateLimitEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_entries",
			Help: "Identifiers currently tracked by each limiter",
		},
		[]string{"limiter"},
	)

	// CacheHitsTotal counts cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMissesTotal counts cache misses.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// DBQueryDuration measures database query latency.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// ChatbotRequestsTotal counts chatbot model calls by outcome.
	ChatbotRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_requests_total",
			Help: "Chatbot model calls by outcome",
		},
		[]string{"outcome"},
	)

	// FeedbackCreatedTotal counts feedback entries created.
	FeedbackCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_created_total",
			Help: "Total number of feedback entries created",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records an HTTP request metric.
func RecordRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRateLimitDecision records one limiter verdict.
func RecordRateLimitDecision(limiter string, allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "admitted"
	}
	RateLimitDecisionsTotal.WithLabelValues(limiter, outcome).Inc()
}

// RecordRateLimitSweep records entries removed by a sweep.
func RecordRateLimitSweep(limiter string, removed int) {
	RateLimitSweptTotal.WithLabelValues(limiter).Add(float64(removed))
}

// SetRateLimitEntries reports the tracked identifier count of a limiter.
func SetRateLimitEntries(limiter string, n int) {
	RateLimitEntries.WithLabelValues(limiter).Set(float64(n))
}

// RecordCacheHit records a cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss.
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordDBQuery records a database query duration.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordChatbotRequest records a chatbot model call outcome.
func RecordChatbotRequest(outcome string) {
	ChatbotRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordFeedbackCreated records a feedback creation.
func RecordFeedbackCreated() {
	FeedbackCreatedTotal.Inc()
}
