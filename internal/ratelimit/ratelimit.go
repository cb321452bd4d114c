// Package ratelimit provides a sliding-window rate limiter keyed by an
// arbitrary identifier (client IP, API key, provider name), plus HTTP
// middleware that applies it to the service's own endpoints.
package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/apierror"
	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
)

// staleAfter is how long an identifier may be idle before housekeeping
// removes its window. Bounds memory, never affects admission decisions.
const staleAfter = time.Hour

// window holds the admitted-request instants for one identifier, oldest
// first. Pruned from the front on every Allow call.
type window struct {
	timestamps []time.Time
}

// Limiter is a sliding-window-log rate limiter. Admission is atomic per
// identifier: after any admitted request, the count of timestamps newer than
// now-window never exceeds maxRequests. Rejections do not mutate the window,
// so a rejected request is not counted against future admissions.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxRequests int
	windowSpan  time.Duration

	trustedCIDRs []*net.IPNet
	logger       *slog.Logger
	stopCh       chan struct{}
	now          func() time.Time
}

// New creates a Limiter admitting at most maxRequests per identifier within
// any windowSpan interval. It starts a background goroutine that removes
// windows for identifiers idle longer than an hour. trustedProxies is a list
// of CIDR strings whose X-Forwarded-For headers the middleware trusts.
func New(maxRequests int, windowSpan time.Duration, trustedProxies []string, logger *slog.Logger) *Limiter {
	l := &Limiter{
		windows:      make(map[string]*window),
		maxRequests:  maxRequests,
		windowSpan:   windowSpan,
		trustedCIDRs: parseCIDRs(trustedProxies, logger),
		logger:       logger,
		stopCh:       make(chan struct{}),
		now:          time.Now,
	}
	go l.housekeeping()
	return l
}

func parseCIDRs(cidrs []string, logger *slog.Logger) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("invalid trusted proxy CIDR, skipping", "cidr", cidr, "error", err)
			continue
		}
		nets = append(nets, ipNet)
	}
	return nets
}

// Stop terminates the background housekeeping goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
}

// Allow reports whether a request from identifier is admitted. It prunes
// timestamps older than the window, rejects without mutation when the
// remaining count has reached the limit, and otherwise records now.
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.windowSpan)

	w := l.windows[identifier]
	if w == nil {
		w = &window{}
		l.windows[identifier] = w
	}

	// Prune expired instants from the front; the slice is append-only so it
	// is ordered oldest first.
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}

	if len(w.timestamps) >= l.maxRequests {
		return false
	}

	w.timestamps = append(w.timestamps, now)
	return true
}

// RetryAfter returns how long the identifier must wait for its oldest
// in-window request to age out. Used for the Retry-After response header.
func (l *Limiter) RetryAfter(identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[identifier]
	if w == nil || len(w.timestamps) == 0 {
		return 0
	}
	wait := w.timestamps[0].Add(l.windowSpan).Sub(l.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// UpdateConfig hot-reloads the limiter bounds. Existing windows are kept;
// the new bounds apply from the next admission decision.
func (l *Limiter) UpdateConfig(maxRequests int, windowSpan time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxRequests = maxRequests
	l.windowSpan = windowSpan
}

// SnapshotEntry describes one identifier's window for the admin API.
type SnapshotEntry struct {
	Identifier string `json:"identifier"`
	InWindow   int    `json:"in_window"`
}

// Snapshot returns the current per-identifier window sizes.
func (l *Limiter) Snapshot() []SnapshotEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.windowSpan)
	entries := make([]SnapshotEntry, 0, len(l.windows))
	for id, w := range l.windows {
		n := 0
		for _, ts := range w.timestamps {
			if ts.After(cutoff) {
				n++
			}
		}
		entries = append(entries, SnapshotEntry{Identifier: id, InWindow: n})
	}
	return entries
}

// Middleware returns an HTTP middleware that enforces the limit per client IP.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := l.clientIP(r)

			if !l.Allow(ip) {
				l.logger.Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
				metrics.RateLimitRejections.WithLabelValues("inbound").Inc()
				retryAfter := int(l.RetryAfter(ip).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				apierror.WriteJSON(w, r, http.StatusTooManyRequests, apierror.RateLimitExceeded, "rate limit exceeded, retry later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the real client IP. X-Forwarded-For is only trusted when
// the direct peer (RemoteAddr) is in the trusted proxies list.
func (l *Limiter) clientIP(r *http.Request) string {
	peerIP := extractIP(r.RemoteAddr)

	if len(l.trustedCIDRs) > 0 && l.isTrusted(peerIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Walk right-to-left, return first non-trusted IP.
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !l.isTrusted(ip) {
					return ip
				}
			}
		}
	}

	return peerIP
}

func (l *Limiter) isTrusted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range l.trustedCIDRs {
		if cidr.Contains(ip) {
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

// housekeeping periodically drops windows whose newest entry is older than
// an hour, bounding memory for one-off identifiers.
func (l *Limiter) housekeeping() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			cutoff := l.now().Add(-staleAfter)
			for id, w := range l.windows {
				if len(w.timestamps) == 0 || w.timestamps[len(w.timestamps)-1].Before(cutoff) {
					delete(l.windows, id)
				}
			}
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}
