// Package health provides health check and readiness probe HTTP handlers.
package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/circuitbreaker"
)

// Pre-serialized liveness response avoids json.Encoder allocation.
var livenessBody = []byte(`{"status":"ok"}` + "\n")

const readinessCacheTTL = 5 * time.Second

// Handler provides /health and /ready endpoints.
type Handler struct {
	breakers map[string]*circuitbreaker.ProviderBreaker
	logger   *slog.Logger

	// Cached readiness result so aggressive /ready polling doesn't take
	// every breaker mutex each time. Protected by cacheMu.
	cacheMu      sync.RWMutex
	cachedResult []byte
	cachedStatus int
	cachedAt     time.Time
}

// New creates a new health check Handler. breakers maps provider names to
// their circuit breaker instances.
func New(breakers map[string]*circuitbreaker.ProviderBreaker, logger *slog.Logger) *Handler {
	return &Handler{breakers: breakers, logger: logger}
}

// RegisterRoutes adds health check routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.liveness)
	mux.HandleFunc("/ready", h.readiness)
}

func (h *Handler) liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(livenessBody) //nolint:errcheck
}

// readiness reports the service unready only when every provider circuit is
// open: the service can still answer from cache while some providers are
// down, so a single open circuit must not pull the instance out of rotation.
func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	// Serve from cache if fresh.
	h.cacheMu.RLock()
	if h.cachedResult != nil && time.Since(h.cachedAt) < readinessCacheTTL {
		body := h.cachedResult
		status := h.cachedStatus
		h.cacheMu.RUnlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body) //nolint:errcheck
		return
	}
	h.cacheMu.RUnlock()

	results := make(map[string]string, len(h.breakers))
	openCount := 0
	for name, cb := range h.breakers {
		st := cb.State()
		results[name] = st.String()
		if st == circuitbreaker.StateOpen {
			openCount++
		}
	}

	httpStatus := http.StatusOK
	statusStr := "ready"
	if len(h.breakers) > 0 && openCount == len(h.breakers) {
		httpStatus = http.StatusServiceUnavailable
		statusStr = "not ready"
		h.logger.Warn("all provider circuits open, reporting not ready")
	}

	body, _ := json.Marshal(map[string]interface{}{
		"status":    statusStr,
		"providers": results,
	})
	body = append(body, '\n')

	// Cache the result.
	h.cacheMu.Lock()
	h.cachedResult = body
	h.cachedStatus = httpStatus
	h.cachedAt = time.Now()
	h.cacheMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	w.Write(body) //nolint:errcheck
}
