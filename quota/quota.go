/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Package quota tracks the upstream rate-limit quota reported in x-ratelimit-* response headers.
package quota

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Names of the upstream response headers carrying the quota.
const (
	HeaderLimit     = "X-Ratelimit-Limit"
	HeaderRemaining = "X-Ratelimit-Remaining"
	HeaderReset     = "X-Ratelimit-Reset"
)

// Snapshot is the last observed quota. Nil fields were not reported (or never parsed).
type Snapshot struct {
	Limit     *int64 `json:"limit"`
	Remaining *int64 `json:"remaining"`
	ResetAt   *int64 `json:"resetAt"`
}

// Known reports whether at least one quota field has been observed.
func (s Snapshot) Known() bool {
	return s.Limit != nil || s.Remaining != nil || s.ResetAt != nil
}

// Tracker keeps the last observed quota snapshot. It's safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewTracker creates a new Tracker with an unknown quota.
func NewTracker() *Tracker {
	return &Tracker{}
}

// UpdateFromHeader replaces the snapshot with the values parsed from the response headers.
// If none of the quota headers holds an integer, the snapshot is left untouched and false is returned.
func (t *Tracker) UpdateFromHeader(h http.Header) bool {
	next := Snapshot{
		Limit:     parseIntHeader(h, HeaderLimit),
		Remaining: parseIntHeader(h, HeaderRemaining),
		ResetAt:   parseIntHeader(h, HeaderReset),
	}
	if !next.Known() {
		return false
	}
	t.mu.Lock()
	t.snapshot = next
	t.mu.Unlock()
	return true
}

// Snapshot returns a copy of the last observed quota.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

func parseIntHeader(h http.Header, name string) *int64 {
	v := strings.TrimSpace(h.Get(name))
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
