// Package cache holds per-file extraction results between analysis runs.
// An entry is served only while the file content is unchanged and the
// entry is younger than the freshness window.
package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value    V
	checksum string
	storedAt time.Time
}

// Cache is a bounded, clock-aware LRU cache keyed by file path. It is safe
// for concurrent use.
type Cache[V any] struct {
	entries *lru.Cache[string, entry[V]]
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*settings)

type settings struct {
	now func() time.Time
}

// WithClock overrides the clock used to age entries.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// New creates a cache holding at most size entries. A ttl of zero disables
// age-based expiry.
func New[V any](size int, ttl time.Duration, opts ...Option) (*Cache[V], error) {
	st := settings{now: time.Now}
	for _, opt := range opts {
		opt(&st)
	}
	entries, err := lru.New[string, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache[V]{entries: entries, ttl: ttl, now: st.now}, nil
}

// Get returns the value stored for key if it was stored with the same
// checksum and is still fresh. Stale entries are evicted.
func (c *Cache[V]) Get(key, checksum string) (V, bool) {
	var zero V
	e, ok := c.entries.Get(key)
	if !ok {
		return zero, false
	}
	if e.checksum != checksum || (c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl) {
		c.entries.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Put stores value for key.
func (c *Cache[V]) Put(key, checksum string, value V) {
	c.entries.Add(key, entry[V]{value: value, checksum: checksum, storedAt: c.now()})
}

// Remove drops key.
func (c *Cache[V]) Remove(key string) {
	c.entries.Remove(key)
}

// Len returns the number of entries, fresh or not.
func (c *Cache[V]) Len() int {
	return c.entries.Len()
}

// Keys returns the cached keys, oldest first.
func (c *Cache[V]) Keys() []string {
	return c.entries.Keys()
}
