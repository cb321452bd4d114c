package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/oluwafemi02/sportsfeed-core/internal/apierror"
)

// Recovery returns middleware that converts handler panics into 500 responses.
// The panic value and stack trace go to the log; the client only ever sees a
// generic JSON error.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				logger.Error("panic recovered",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
					"stack", string(debug.Stack()),
				)
				apierror.WriteJSON(w, r, http.StatusInternalServerError, apierror.InternalError, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
