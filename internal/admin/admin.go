// Package admin provides admin API endpoints for runtime inspection and a
// small set of mutations (cache invalidation, circuit reset). All endpoints
// are protected by IP allowlist.
package admin

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/oluwafemi02/sportsfeed-core/internal/cache"
	"github.com/oluwafemi02/sportsfeed-core/internal/circuitbreaker"
	"github.com/oluwafemi02/sportsfeed-core/internal/config"
	"github.com/oluwafemi02/sportsfeed-core/internal/ratelimit"
)

// Handler provides admin API endpoints.
type Handler struct {
	reloader    ConfigProvider
	limiter     *ratelimit.Limiter
	breakers    map[string]*circuitbreaker.ProviderBreaker
	store       cache.Store
	allowedNets []*net.IPNet
	logger      *slog.Logger
}

// ConfigProvider abstracts config access for testability.
type ConfigProvider interface {
	Current() *config.Config
}

// New creates a new admin Handler. The allowlist CIDRs must be pre-validated
// (config validation ensures this).
func New(
	reloader ConfigProvider,
	limiter *ratelimit.Limiter,
	breakers map[string]*circuitbreaker.ProviderBreaker,
	store cache.Store,
	allowlist []string,
	logger *slog.Logger,
) *Handler {
	nets := make([]*net.IPNet, 0, len(allowlist))
	for _, cidr := range allowlist {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // already validated by config
		}
		nets = append(nets, ipNet)
	}
	return &Handler{
		reloader:    reloader,
		limiter:     limiter,
		breakers:    breakers,
		store:       store,
		allowedNets: nets,
		logger:      logger,
	}
}

// RegisterRoutes adds admin routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/providers", h.guard(http.MethodGet, h.providersHandler))
	mux.HandleFunc("/admin/config", h.guard(http.MethodGet, h.configHandler))
	mux.HandleFunc("/admin/limiters", h.guard(http.MethodGet, h.limitersHandler))
	mux.HandleFunc("/admin/cache/invalidate", h.guard(http.MethodPost, h.invalidateHandler))
	mux.HandleFunc("/admin/circuits/", h.guard(http.MethodPost, h.resetCircuitHandler))
}

// guard wraps a handler with method and IP allowlist checking.
func (h *Handler) guard(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
				"error": "Method Not Allowed",
			})
			return
		}

		ip := extractIP(r.RemoteAddr)
		if !h.isAllowed(ip) {
			h.logger.Warn("admin access denied", "client_ip", ip, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Forbidden",
			})
			return
		}
		next(w, r)
	}
}

func (h *Handler) isAllowed(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range h.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// providerStatus is the response type for /admin/providers.
type providerStatus struct {
	Name                string `json:"name"`
	BaseURL             string `json:"base_url"`
	CircuitBreakerState string `json:"circuit_breaker_state"`
	CacheTTLSeconds     int    `json:"cache_ttl_seconds"`
	RetryMaxAttempts    int    `json:"retry_max_attempts"`
}

func (h *Handler) providersHandler(w http.ResponseWriter, r *http.Request) {
	cfg := h.reloader.Current()
	statuses := make([]providerStatus, len(cfg.Providers))
	for i, p := range cfg.Providers {
		cbState := "unknown"
		if cb, ok := h.breakers[p.Name]; ok && cb != nil {
			cbState = cb.State().String()
		}
		statuses[i] = providerStatus{
			Name:                p.Name,
			BaseURL:             p.BaseURL,
			CircuitBreakerState: cbState,
			CacheTTLSeconds:     int(p.TTL().Seconds()),
			RetryMaxAttempts:    p.Retry.MaxAttempts,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers":     statuses,
		"cache_entries": h.store.Len(),
	})
}

func (h *Handler) configHandler(w http.ResponseWriter, r *http.Request) {
	cfg := h.reloader.Current()

	// Copy and redact credentials before serializing.
	redacted := *cfg
	redacted.Providers = make([]config.ProviderConfig, len(cfg.Providers))
	copy(redacted.Providers, cfg.Providers)
	for i := range redacted.Providers {
		if redacted.Providers[i].AuthKey != "" {
			redacted.Providers[i].AuthKey = "***"
		}
	}

	writeJSON(w, http.StatusOK, redacted)
}

func (h *Handler) limitersHandler(w http.ResponseWriter, r *http.Request) {
	entries := h.limiter.Snapshot()

	// Pagination: page/page_size from query params.
	pageSize := 100
	page := 0

	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if v := parseInt(ps); v > 0 && v <= 1000 {
			pageSize = v
		}
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if v := parseInt(p); v >= 0 {
			page = v
		}
	}

	total := len(entries)
	start := page * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries[start:end],
		"total":   total,
		"page":    page,
	})
}

// invalidateHandler drops cache entries matching the pattern query parameter.
// A trailing '*' performs a prefix match; anything else is an exact match.
func (h *Handler) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "pattern query parameter is required",
		})
		return
	}

	removed := h.store.Invalidate(pattern)
	h.logger.Info("cache invalidated via admin API", "pattern", pattern, "removed", removed)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pattern": pattern,
		"removed": removed,
	})
}

// resetCircuitHandler force-closes a provider's circuit breaker:
// POST /admin/circuits/{name}/reset.
func (h *Handler) resetCircuitHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/circuits/")
	name, ok := strings.CutSuffix(rest, "/reset")
	if !ok || name == "" || strings.Contains(name, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "Not Found",
		})
		return
	}

	cb, exists := h.breakers[name]
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown provider: " + name,
		})
		return
	}

	cb.Reset()
	h.logger.Info("circuit breaker reset via admin API", "provider", name)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": name,
		"state":    cb.State().String(),
	})
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
