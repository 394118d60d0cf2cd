/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	storedAt  time.Time
	expiresAt time.Time
}

// LRU is a size-bounded (or unbounded) in-memory store with least-recently-used eviction.
// Expired entries are never returned but are only removed when they are accessed.
type LRU[K comparable, V any] struct {
	maxEntries int
	defaultTTL time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	lruList *list.List
	entries map[K]*list.Element

	metricsCollector MetricsCollector
}

// LRUOpts represents options for the LRU store.
type LRUOpts struct {
	// MaxEntries limits the number of stored entries. 0 means no limit.
	MaxEntries int
	// DefaultTTL is used by Add. 0 means entries never expire.
	DefaultTTL time.Duration
	// Clock is used for stamping and expiring entries. Real clock is used if nil.
	Clock clockwork.Clock
	// MetricsCollector may be nil, metrics are disabled in this case.
	MetricsCollector MetricsCollector
}

// NewLRU creates a new LRU store.
func NewLRU[K comparable, V any](opts LRUOpts) (*LRU[K, V], error) {
	if opts.MaxEntries < 0 {
		return nil, fmt.Errorf("max entries must be greater or equal to 0 (no limit)")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("default TTL must be greater or equal to 0 (no expiration)")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetricsCollector
	}
	return &LRU[K, V]{
		maxEntries:       opts.MaxEntries,
		defaultTTL:       opts.DefaultTTL,
		clock:            opts.Clock,
		lruList:          list.New(),
		entries:          make(map[K]*list.Element),
		metricsCollector: opts.MetricsCollector,
	}, nil
}

// Get returns a not expired value by the key.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	value, _, ok = c.GetWithStoredAt(key)
	return value, ok
}

// GetWithStoredAt works like Get but also returns the time when the value was stored.
func (c *LRU[K, V]) GetWithStoredAt(key K) (value V, storedAt time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, found := c.get(key)
	if !found {
		return value, time.Time{}, false
	}
	return entry.value, entry.storedAt, true
}

// Add stores the value with the default TTL, overwriting the previous one.
// The entry expires when more than the TTL has passed since it was stored.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(key, value, c.defaultTTL)
}

// GetOrAdd returns the stored value or stores the one produced by valueProvider.
func (c *LRU[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, found := c.get(key); found {
		return entry.value, true
	}
	value = valueProvider()
	c.add(key, value, c.defaultTTL)
	return value, false
}

// Len returns the number of stored entries, including the expired but not yet accessed ones.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRU[K, V]) get(key K) (*lruEntry[K, V], bool) {
	elem, hit := c.entries[key]
	if !hit {
		c.metricsCollector.IncMisses()
		return nil, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	if !entry.expiresAt.IsZero() && c.clock.Now().After(entry.expiresAt) {
		c.lruList.Remove(elem)
		delete(c.entries, key)
		c.metricsCollector.SetAmount(len(c.entries))
		c.metricsCollector.IncMisses()
		return nil, false
	}
	c.lruList.MoveToFront(elem)
	c.metricsCollector.IncHits()
	return entry, true
}

func (c *LRU[K, V]) add(key K, value V, ttl time.Duration) {
	now := c.clock.Now()
	entry := &lruEntry[K, V]{key: key, value: value, storedAt: now}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	if elem, ok := c.entries[key]; ok {
		elem.Value = entry
		c.lruList.MoveToFront(elem)
		return
	}
	c.entries[key] = c.lruList.PushFront(entry)
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		if oldest := c.lruList.Back(); oldest != nil {
			c.lruList.Remove(oldest)
			delete(c.entries, oldest.Value.(*lruEntry[K, V]).key)
			c.metricsCollector.AddEvictions(1)
		}
	}
	c.metricsCollector.SetAmount(len(c.entries))
}
