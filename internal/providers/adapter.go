package providers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/oluwafemi02/sportsfeed-core/internal/cache"
	"github.com/oluwafemi02/sportsfeed-core/internal/metrics"
	"github.com/oluwafemi02/sportsfeed-core/internal/upstream"
)

// ErrNotFound is returned when a provider answers successfully but the
// requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Adapter is the shared cache-aside plumbing behind every provider adapter.
// Reads go cache → resilient client → normalize → cache write; when the
// provider is unavailable, the last-known entry is served stale rather than
// failing the caller.
type Adapter struct {
	client *upstream.Client
	cache  cache.Store
	ttl    time.Duration
	kind   string // data kind for cache metrics: "fixtures", "odds", "predictions"
	logger *slog.Logger
}

// NewAdapter wires a provider client to the shared cache. ttl follows the
// data kind's volatility: seconds for live data, hours for reference data;
// zero disables caching entirely.
func NewAdapter(client *upstream.Client, store cache.Store, ttl time.Duration, kind string, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, cache: store, ttl: ttl, kind: kind, logger: logger}
}

// Client exposes the underlying resilient client (health and admin views).
func (a *Adapter) Client() *upstream.Client { return a.client }

// fetch is the cache-aside read path shared by all adapters. The cache key is
// derived deterministically from the request; parse failures are ParseErrors,
// never retried and never counted against the circuit breaker.
func fetch[T any](ctx context.Context, a *Adapter, path string, query url.Values, parse func([]byte) (T, error)) (T, error) {
	var zero T
	key := cache.Key(http.MethodGet, path, query)

	if v, ok := a.cache.Get(key); ok {
		metrics.CacheHits.WithLabelValues(a.kind).Inc()
		return v.(T), nil
	}
	metrics.CacheMisses.WithLabelValues(a.kind).Inc()

	v, err := a.cache.GetOrSet(ctx, key, a.ttl, func(ctx context.Context) (any, error) {
		body, err := a.client.Get(ctx, path, query)
		if err != nil {
			return nil, err
		}
		parsed, err := parse(body)
		if err != nil {
			metrics.ParseFailures.WithLabelValues(a.client.Provider()).Inc()
			a.logger.Error("malformed provider payload",
				"provider", a.client.Provider(),
				"path", path,
				"error", err,
			)
			return nil, &upstream.ParseError{Provider: a.client.Provider(), Err: err}
		}
		return parsed, nil
	})

	if err != nil {
		// Degraded path: the provider is unreachable but we have served this
		// request before. Stale data beats no data for feed consumers.
		if upstream.IsUnavailable(err) {
			if stale, ok := a.cache.GetStale(key); ok {
				metrics.StaleServes.WithLabelValues(a.kind).Inc()
				a.logger.Warn("serving stale cache entry, provider unavailable",
					"provider", a.client.Provider(),
					"path", path,
				)
				return stale.(T), nil
			}
		}
		return zero, err
	}
	return v.(T), nil
}
