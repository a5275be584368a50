package middleware

import (
	"net/http"
	"time"

	"github.com/feedbackhub/feedbackhub/pkg/logger"
)

// Logging returns a middleware that logs one line per completed request.
func Logging(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", time.Since(start),
				"request_id", GetRequestID(r.Context()),
			}
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				log.Error("request completed", kv...)
			case rw.statusCode >= http.StatusBadRequest:
				log.Warn("request completed", kv...)
			default:
				log.Info("request completed", kv...)
			}
		})
	}
}
