// Package cache provides the TTL key/value cache used read-through in front
// of provider calls. The cache is a pure accelerator: its absence (or any
// backend failure) never changes correctness, only latency and upstream load.
package cache

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Store is the cache contract. Implementations must be safe for concurrent
// use and must treat internal failures as misses rather than surfacing them.
type Store interface {
	// Get returns the value for key, or false when the key is absent or its
	// TTL has passed. Expired entries are inert, not necessarily evicted.
	Get(key string) (any, bool)

	// GetStale returns the value for key even when its TTL has passed, as
	// long as the entry has not been physically evicted. This is the explicit
	// stale-read path used when a provider is unavailable.
	GetStale(key string) (any, bool)

	// Set stores value under key for ttl. ttl <= 0 means caching is disabled
	// for this write and the call is a no-op.
	Set(key string, value any, ttl time.Duration)

	// GetOrSet returns the cached value for key, or runs compute and caches
	// its result for ttl. Under concurrent misses for the same key, compute
	// runs once and all callers receive the same value; a caller that gets a
	// shared failure falls back to running compute itself.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) (any, error)

	// Invalidate removes all keys matching pattern: an exact key, or a
	// prefix glob ending in '*'. Returns the number of entries removed.
	// Used when upstream data changed out-of-band (e.g. after a sync job).
	Invalidate(pattern string) int

	// Len returns the number of entries currently held, expired included.
	Len() int

	// Purge drops every entry.
	Purge()
}

// Key derives the deterministic cache key for a logical request:
// method + path + sorted query parameters. url.Values.Encode sorts by key,
// so semantically equal requests always map to the same entry.
func Key(method, path string, query url.Values) string {
	var b strings.Builder
	b.Grow(len(method) + len(path) + 16)
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(path)
	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	return b.String()
}

// matchKey reports whether key matches pattern: exact match, or prefix match
// when pattern ends in '*'.
func matchKey(pattern, key string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(key, prefix)
	}
	return pattern == key
}
