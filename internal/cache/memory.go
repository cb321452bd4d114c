package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// entry is a stored value with its expiry instant. Expiry is lazy: Get treats
// passed entries as absent, GetStale still sees them, and the LRU evicts them
// under capacity pressure.
type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-process Store bounded by entry count with LRU eviction.
// A singleflight group suppresses duplicate computation on concurrent misses.
type Memory struct {
	entries *lru.Cache[string, entry]
	group   singleflight.Group
	now     func() time.Time
}

// NewMemory creates an in-memory cache holding at most maxEntries values.
func NewMemory(maxEntries int) (*Memory, error) {
	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &Memory{entries: entries, now: time.Now}, nil
}

func (m *Memory) Get(key string) (any, bool) {
	e, ok := m.entries.Get(key)
	if !ok || m.now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (m *Memory) GetStale(key string) (any, bool) {
	e, ok := m.entries.Peek(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.entries.Add(key, entry{value: value, expiresAt: m.now().Add(ttl)})
}

func (m *Memory) GetOrSet(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (any, error)) (any, error) {
	if ttl <= 0 {
		return compute(ctx)
	}

	if v, ok := m.Get(key); ok {
		return v, nil
	}

	v, err, shared := m.group.Do(key, func() (any, error) {
		// Re-check under the flight: another caller may have completed the
		// write between our miss and joining the group.
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		m.entries.Add(key, entry{value: v, expiresAt: m.now().Add(ttl)})
		return v, nil
	})

	if err != nil && shared {
		// The shared computation failed on another caller's behalf (possibly
		// with their context). Fall back to computing with our own.
		return compute(ctx)
	}
	return v, err
}

func (m *Memory) Invalidate(pattern string) int {
	removed := 0
	for _, key := range m.entries.Keys() {
		if matchKey(pattern, key) {
			m.entries.Remove(key)
			removed++
		}
	}
	return removed
}

func (m *Memory) Len() int {
	return m.entries.Len()
}

func (m *Memory) Purge() {
	m.entries.Purge()
}
