package cache

import (
	"sync"
	"time"
)

// Cache is an in-memory key-value store with a per-entry TTL. Entries are
// checked for expiry on read; StartSweep can additionally evict them in the
// background. A zero value is not usable, construct with New or NewWithClock.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New creates a cache using the real clock.
func New[V any]() *Cache[V] {
	return NewWithClock[V](time.Now)
}

// NewWithClock creates a cache with an injected clock, so expiry can be
// tested without sleeping.
func NewWithClock[V any](now func() time.Time) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     now,
	}
}

// Set stores value under key, overwriting any existing entry, and schedules
// expiry at now+ttl.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Get returns the value stored under key. A missing or expired key yields
// (zero, false); expired entries are removed on the spot. Absence is a normal
// outcome, not an error.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock: the entry may have been overwritten
		// with a fresh TTL between the two lock acquisitions.
		if cur, still := c.entries[key]; still && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartSweep evicts expired entries on the given interval until the returned
// stop function is called. The sweep never blocks Get/Set beyond ordinary
// lock contention.
func (c *Cache[V]) StartSweep(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-done:
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

func (c *Cache[V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
