package middleware

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// HeaderXRequestID is the header name for request ID.
	HeaderXRequestID = "X-Request-ID"
	// HeaderXForwardedFor is the header name for forwarded client IP.
	HeaderXForwardedFor = "X-Forwarded-For"
	// HeaderXRealIP is the header name for real client IP.
	HeaderXRealIP = "X-Real-IP"
)

// DefaultFallbackIdentifier is shared by every client that arrives without
// forwarding headers.
const DefaultFallbackIdentifier = "default-client"

// requestIDMaxLength is the maximum length for a valid request ID.
const requestIDMaxLength = 128

// validRequestIDRegex matches alphanumeric strings with dashes and underscores.
var validRequestIDRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

// RequestID returns a middleware that adds a unique request ID to each request.
// A valid incoming X-Request-ID header is reused, otherwise a UUID v4 is generated.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderXRequestID)

			if !isValidRequestID(requestID) {
				requestID = uuid.New().String()
			}

			w.Header().Set(HeaderXRequestID, requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isValidRequestID checks if the request ID is valid.
func isValidRequestID(id string) bool {
	if id == "" || len(id) > requestIDMaxLength {
		return false
	}
	return validRequestIDRegex.MatchString(id)
}

// IdentifierConfig controls how a client identifier is derived.
type IdentifierConfig struct {
	// Fallback is used when neither forwarding header is present.
	Fallback string
	// UseRemoteAddr uses the connection peer address instead of Fallback.
	UseRemoteAddr bool
}

// ClientID returns a middleware that derives the client identifier and
// stores it in context for the rate limiters.
func ClientID(cfg IdentifierConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), ClientIDKey, Identify(r, cfg))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Identify returns the first X-Forwarded-For entry, else X-Real-IP, else the
// configured fallback. Header values are used as opaque keys.
func Identify(r *http.Request, cfg IdentifierConfig) string {
	if xff := r.Header.Get(HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get(HeaderXRealIP)); xri != "" {
		return xri
	}

	if cfg.UseRemoteAddr {
		if ip := extractIPFromAddr(r.RemoteAddr); ip != "" {
			return ip
		}
	}

	if cfg.Fallback == "" {
		return DefaultFallbackIdentifier
	}
	return cfg.Fallback
}

// extractIPFromAddr extracts the IP address from an address string (host:port or just host).
func extractIPFromAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
