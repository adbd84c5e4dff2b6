// Package cache provides a time-bounded in-memory cache for auxiliary lookups.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is applied when Set is called without an explicit ttl.
const DefaultTTL = 5 * time.Minute

// Entry is a single cached value.
type Entry[T any] struct {
	Data      T
	CreatedAt time.Time
	TTL       time.Duration
}

func (e *Entry[T]) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > e.TTL
}

// Cache stores values with a per-entry expiry. Expired entries are removed
// lazily on read; there is no background sweep.
type Cache[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry[T]
	epoch   uint64
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		ttl:     o.ttl,
		now:     o.now,
		entries: make(map[string]*Entry[T]),
	}
}

// Set stores value under key. An optional ttl overrides the cache default.
func (c *Cache[T]) Set(key string, value T, ttl ...time.Duration) {
	d := c.ttl
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry[T]{
		Data:      value,
		CreatedAt: c.now(),
		TTL:       d,
	}
}

// store sets key unless Clear ran since epoch was read.
func (c *Cache[T]) store(epoch uint64, key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch != epoch {
		return
	}
	c.entries[key] = &Entry[T]{
		Data:      value,
		CreatedAt: c.now(),
		TTL:       c.ttl,
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.get(key)
}

// Must be called with lock held.
func (c *Cache[T]) get(key string) (T, bool) {
	var zero T

	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if entry.expired(c.now()) {
		delete(c.entries, key)
		return zero, false
	}
	return entry.Data, true
}

// Has reports whether a live entry exists for key.
func (c *Cache[T]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry. Fetches started before Clear still complete for
// their callers, but later fetches do not join them and their results are
// not stored.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry[T])
	c.epoch++
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch returns the cached value for key or calls fn to produce it. Concurrent
// calls for the same key share one call to fn. Errors are never cached.
// The returned bool reports whether the value came from the cache.
func (c *Cache[T]) Fetch(key string, fn func() (T, error)) (T, bool, error) {
	if value, ok := c.Get(key); ok {
		return value, true, nil
	}

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("%d/%s", epoch, key), func() (any, error) {
		// A concurrent Fetch may have stored the value between Get and Do.
		c.mu.Lock()
		value, ok := c.get(key)
		c.mu.Unlock()
		if ok {
			return value, nil
		}

		value, err := fn()
		if err != nil {
			return value, err
		}
		c.store(epoch, key, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	value, _ := v.(T)
	return value, false, nil
}

// BatchKey derives a deterministic key from a set of identifiers. Order and
// duplicates in ids do not affect the result.
func BatchKey(prefix string, ids []string) string {
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	h := sha256.New()
	for _, id := range unique {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s:%d:%s", prefix, len(unique), hex.EncodeToString(h.Sum(nil))[:16])
}
