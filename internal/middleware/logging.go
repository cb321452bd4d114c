// Package middleware provides common HTTP middleware for the service:
// structured request logging, panic recovery, request IDs, and a global
// request deadline.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Logging returns middleware that logs each request as structured JSON
// including method, path, status code, latency, and client IP, and records
// request metrics.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			latency := time.Since(start)
			metrics.RequestsTotal.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(recorder.statusCode)).Inc()

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"latency_ms", latency.Milliseconds(),
				"client_ip", r.RemoteAddr,
				"request_id", GetRequestID(r.Context()),
			)
		})
	}
}
