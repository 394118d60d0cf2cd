/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package cache

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultResponseTTL is a default time to live for cached upstream responses.
const DefaultResponseTTL = 30 * time.Second

// ResponseCacheOpts represents options for ResponseCache.
type ResponseCacheOpts struct {
	TTL              time.Duration
	MaxEntries       int
	Clock            clockwork.Clock
	MetricsCollector MetricsCollector
}

// ResponseCache stores the last successful upstream payload per request fingerprint.
// An entry is served only while no more than TTL has passed since it was stored.
type ResponseCache struct {
	store *LRU[string, json.RawMessage]
	ttl   time.Duration
	clock clockwork.Clock
}

// NewResponseCache creates a new ResponseCache.
func NewResponseCache(opts ResponseCacheOpts) (*ResponseCache, error) {
	if opts.TTL == 0 {
		opts.TTL = DefaultResponseTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	store, err := NewLRU[string, json.RawMessage](LRUOpts{
		MaxEntries:       opts.MaxEntries,
		DefaultTTL:       opts.TTL,
		Clock:            opts.Clock,
		MetricsCollector: opts.MetricsCollector,
	})
	if err != nil {
		return nil, err
	}
	return &ResponseCache{store: store, ttl: opts.TTL, clock: opts.Clock}, nil
}

// Get returns the cached payload if it exists and is not expired.
func (c *ResponseCache) Get(fingerprint string) (json.RawMessage, bool) {
	return c.store.Get(fingerprint)
}

// GetWithAge works like Get but also returns how long ago the payload was stored.
func (c *ResponseCache) GetWithAge(fingerprint string) (json.RawMessage, time.Duration, bool) {
	payload, storedAt, ok := c.store.GetWithStoredAt(fingerprint)
	if !ok {
		return nil, 0, false
	}
	return payload, c.clock.Since(storedAt), true
}

// Put stores (or overwrites) the payload stamping it with the current time.
func (c *ResponseCache) Put(fingerprint string, payload json.RawMessage) {
	c.store.Add(fingerprint, payload)
}

// Len returns the number of stored entries.
func (c *ResponseCache) Len() int {
	return c.store.Len()
}

// TTL returns the time to live of cached entries.
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

// Fingerprint builds a deterministic cache key from the endpoint and query parameters.
// Parameter names are sorted, so the result does not depend on the order they were added in.
// Values of a repeated parameter keep their order.
func Fingerprint(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(endpoint)
	sb.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(k))
		sb.WriteByte('=')
		for j, v := range params[k] {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
