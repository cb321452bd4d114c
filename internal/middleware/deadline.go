package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/apierror"
)

// Deadline returns middleware that applies a global request deadline to the
// entire handler chain. The deadline propagates through the request context
// into provider calls, so in-flight retries stop issuing new attempts once it
// is reached rather than restarting their budget. If the deadline fires
// before the handler completes, a 504 is returned. Pass 0 to disable.
func Deadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next // disabled
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			dw := &deadlineWriter{ResponseWriter: w}

			go func() {
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
				// Handler completed before deadline.
			case <-ctx.Done():
				// Only write the 504 if the handler hasn't started writing
				// a response yet.
				if dw.tryClaimWrite() {
					apierror.WriteJSON(w, r, http.StatusGatewayTimeout, apierror.DeadlineExceeded, "request deadline exceeded")
				}
				// Wait for handler goroutine to finish to avoid leaks.
				<-done
			}
		})
	}
}

// deadlineWriter wraps ResponseWriter and tracks whether any bytes have been
// written, so the deadline handler never sends a 504 after a response has
// started streaming to the client.
type deadlineWriter struct {
	http.ResponseWriter
	claimed bool
}

// tryClaimWrite claims the right to write. Returns true if no bytes have
// been written yet. The two call sites are synchronized via the done channel
// and context cancellation, so no lock is needed.
func (dw *deadlineWriter) tryClaimWrite() bool {
	if dw.claimed {
		return false
	}
	dw.claimed = true
	return true
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.claimed = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.claimed = true
	return dw.ResponseWriter.Write(b)
}
