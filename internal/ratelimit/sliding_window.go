/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/predictdash/predictdash/cache"
)

// SlidingWindowLimiter implements sliding window rate limiting algorithm.
// Per-key windows are kept in an LRU store, so the least active clients are forgotten first.
type SlidingWindowLimiter struct {
	windows *cache.LRU[string, *slidingwindow.Limiter]
	maxRate Rate
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(maxRate Rate, maxKeys int) (*SlidingWindowLimiter, error) {
	windows, err := cache.NewLRU[string, *slidingwindow.Limiter](cache.LRUOpts{MaxEntries: maxKeys})
	if err != nil {
		return nil, fmt.Errorf("new LRU store for keys: %w", err)
	}
	return &SlidingWindowLimiter{windows: windows, maxRate: maxRate}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	lim, _ := l.windows.GetOrAdd(key, l.newWindow)
	if lim.Allow() {
		return true, 0, nil
	}
	now := time.Now()
	return false, now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now), nil
}

func (l *SlidingWindowLimiter) newWindow() *slidingwindow.Limiter {
	lim, _ := slidingwindow.NewLimiter(l.maxRate.Duration, int64(l.maxRate.Count),
		func() (slidingwindow.Window, slidingwindow.StopFunc) {
			return slidingwindow.NewLocalWindow()
		})
	return lim
}
