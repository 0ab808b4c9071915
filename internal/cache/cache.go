// Package cache is the query cache shared by every dashboard session: keyed entries with staleness
// windows, prefix invalidation, garbage collection and de-duplicated concurrent fetches.
package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached query, e.g. {"requests", "detail", "42"}
type Key []string

// NewKey builds a key from segments
func NewKey(segments ...string) Key { return Key(segments) }

// String renders the key for logs and events
func (k Key) String() string { return strings.Join(k, "/") }

// id is the map key; the separator cannot appear in user input
func (k Key) id() string { return strings.Join(k, "\x00") }

// HasPrefix reports whether every segment of prefix matches k's leading segments
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

// Append returns a new key with extra segments
func (k Key) Append(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// Options control how long an entry is served without refetching (StaleTime) and how long an
// unused entry is kept at all (GCTime).
type Options struct {
	StaleTime time.Duration
	GCTime    time.Duration
}

// DefaultGCTime applies when Options.GCTime is zero
const DefaultGCTime = 5 * time.Minute

// Entry is one cached query result
type Entry struct {
	Key          Key
	Value        interface{}
	UpdatedAt    time.Time
	LastAccessed time.Time
	HitCount     int
	Invalidated  bool
	opts         Options
}

// flight tracks an in-progress fetch; discarded flights do not write their result
type flight struct {
	key       Key
	discarded bool
}

// Cache is safe for concurrent use. Writes are last-write-wins per key.
type Cache struct {
	entries    map[string]*Entry
	inflight   map[string]*flight
	mutex      sync.RWMutex
	maxEntries int
	group      singleflight.Group
	now        func() time.Time

	listenerMu sync.RWMutex
	listeners  []func(prefix Key)

	stats Stats
}

// Stats tracks cache performance
type Stats struct {
	Hits          int64
	Misses        int64
	Evictions     int64
	Invalidations int64
	Discarded     int64
	mutex         sync.RWMutex
}

// New creates a cache holding at most maxEntries entries
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Cache{
		entries:    make(map[string]*Entry),
		inflight:   make(map[string]*flight),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Fetch returns the cached value for key while it is fresh, otherwise calls fn and caches its result.
// Concurrent fetches of the same key share one call to fn until the key is invalidated or removed.
// A failed fn leaves the cache untouched.
func (c *Cache) Fetch(ctx context.Context, key Key, opts Options, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	id := key.id()

	if v, ok := c.fresh(id, opts.StaleTime); ok {
		c.record(&c.stats.Hits)
		return v, nil
	}
	c.record(&c.stats.Misses)

	// The shared call outlives any single caller; a cancelled caller stops waiting but the others do not.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (interface{}, error) {
		f := c.begin(key)
		defer c.end(id, f)

		val, err := fn(flightCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, val, opts, f)
		return val, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is the typed form of Cache.Fetch
func Fetch[T any](ctx context.Context, c *Cache, key Key, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, opts, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %s holds %T", key, v)
	}
	return typed, nil
}

func (c *Cache) fresh(id string, staleTime time.Duration) (interface{}, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[id]
	if !ok || entry.Invalidated || c.now().Sub(entry.UpdatedAt) >= staleTime {
		return nil, false
	}
	entry.LastAccessed = c.now()
	entry.HitCount++
	return entry.Value, true
}

func (c *Cache) begin(key Key) *flight {
	f := &flight{key: key}
	c.mutex.Lock()
	c.inflight[key.id()] = f
	c.mutex.Unlock()
	return f
}

func (c *Cache) end(id string, f *flight) {
	c.mutex.Lock()
	if c.inflight[id] == f {
		delete(c.inflight, id)
	}
	c.mutex.Unlock()
}

func (c *Cache) store(key Key, value interface{}, opts Options, f *flight) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if f != nil && f.discarded {
		c.record(&c.stats.Discarded)
		log.Printf("🗑️  Discarding late result for %s", key)
		return
	}
	c.put(key, value, opts)
}

// put requires c.mutex held
func (c *Cache) put(key Key, value interface{}, opts Options) {
	id := key.id()
	if _, exists := c.entries[id]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	now := c.now()
	c.entries[id] = &Entry{
		Key:          key,
		Value:        value,
		UpdatedAt:    now,
		LastAccessed: now,
		opts:         opts,
	}
}

// Get returns the cached value regardless of staleness
func (c *Cache) Get(key Key) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.entries[key.id()]
	if !ok {
		return nil, false
	}
	return entry.Value, true
}

// SetQueryData replaces the value at key with updater(old). The old value is nil when absent.
// Returning nil from updater leaves the cache unchanged.
func (c *Cache) SetQueryData(key Key, updater func(old interface{}) interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var old interface{}
	opts := Options{GCTime: DefaultGCTime}
	if entry, ok := c.entries[key.id()]; ok {
		old = entry.Value
		opts = entry.opts
	}
	updated := updater(old)
	if updated == nil {
		return
	}
	c.put(key, updated, opts)
}

// Invalidate marks every entry under prefix stale so the next Fetch refetches it. In-flight fetches
// under prefix will not write their (possibly outdated) result.
func (c *Cache) Invalidate(prefix Key) int {
	c.mutex.Lock()
	n := 0
	for _, entry := range c.entries {
		if entry.Key.HasPrefix(prefix) && !entry.Invalidated {
			entry.Invalidated = true
			n++
		}
	}
	c.discardInflight(prefix)
	c.mutex.Unlock()

	c.record(&c.stats.Invalidations)
	c.notify(prefix)
	return n
}

// Remove deletes every entry under prefix. Results of fetches already in flight are dropped.
func (c *Cache) Remove(prefix Key) int {
	c.mutex.Lock()
	n := 0
	for id, entry := range c.entries {
		if entry.Key.HasPrefix(prefix) {
			delete(c.entries, id)
			n++
		}
	}
	c.discardInflight(prefix)
	c.mutex.Unlock()

	c.notify(prefix)
	return n
}

// discardInflight requires c.mutex held
func (c *Cache) discardInflight(prefix Key) {
	for _, f := range c.inflight {
		if f.key.HasPrefix(prefix) {
			f.discarded = true
			c.group.Forget(f.key.id())
		}
	}
}

// Sweep drops entries unused for longer than their GC time and returns how many were dropped
func (c *Cache) Sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	n := 0
	for id, entry := range c.entries {
		gc := entry.opts.GCTime
		if gc <= 0 {
			gc = DefaultGCTime
		}
		if now.Sub(entry.LastAccessed) > gc {
			delete(c.entries, id)
			c.record(&c.stats.Evictions)
			n++
		}
	}
	return n
}

// evictOldest removes the least recently used entry; requires c.mutex held
func (c *Cache) evictOldest() {
	var oldestID string
	var oldestTime time.Time

	for id, entry := range c.entries {
		if oldestID == "" || entry.LastAccessed.Before(oldestTime) {
			oldestID = id
			oldestTime = entry.LastAccessed
		}
	}

	if oldestID != "" {
		log.Printf("🗑️  Evicted oldest cache entry: %s", c.entries[oldestID].Key)
		delete(c.entries, oldestID)
		c.record(&c.stats.Evictions)
	}
}

// Keys lists the cached keys under prefix
func (c *Cache) Keys(prefix Key) []Key {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var keys []Key
	for _, entry := range c.entries {
		if entry.Key.HasPrefix(prefix) {
			keys = append(keys, entry.Key)
		}
	}
	return keys
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// OnInvalidate registers fn to be called with the prefix of every Invalidate and Remove
func (c *Cache) OnInvalidate(fn func(prefix Key)) {
	c.listenerMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenerMu.Unlock()
}

func (c *Cache) notify(prefix Key) {
	c.listenerMu.RLock()
	listeners := append([]func(Key){}, c.listeners...)
	c.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(prefix)
	}
}

func (c *Cache) record(counter *int64) {
	c.stats.mutex.Lock()
	*counter++
	c.stats.mutex.Unlock()
}

// GetStats returns cache statistics
func (c *Cache) GetStats() map[string]interface{} {
	// size first: writers take c.mutex before the stats mutex
	size := c.Len()

	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	hitRate := 0.0
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		hitRate = float64(c.stats.Hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"cache_size":    size,
		"max_entries":   c.maxEntries,
		"hits":          c.stats.Hits,
		"misses":        c.stats.Misses,
		"hit_rate":      fmt.Sprintf("%.2f%%", hitRate),
		"evictions":     c.stats.Evictions,
		"invalidations": c.stats.Invalidations,
		"discarded":     c.stats.Discarded,
	}
}
