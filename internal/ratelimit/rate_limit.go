/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Alg represents a rate-limiting algorithm.
type Alg string

// Supported rate-limiting algorithms.
const (
	AlgLeakyBucket   Alg = "leakybucket"
	AlgSlidingWindow Alg = "slidingwindow"
)

// DefaultMaxKeys is a default maximum number of tracked keys.
const DefaultMaxKeys = 10000

// Limiter decides whether a request identified by the key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// NewLimiter creates a limiter for the given algorithm.
// maxBurst is used by the leaky bucket algorithm only.
func NewLimiter(alg Alg, maxRate Rate, maxBurst, maxKeys int) (Limiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %d per %s", maxRate.Count, maxRate.Duration)
	}
	if maxKeys == 0 {
		maxKeys = DefaultMaxKeys
	}
	switch alg {
	case AlgLeakyBucket, "":
		return NewLeakyBucketLimiter(maxRate, maxBurst, maxKeys)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(maxRate, maxKeys)
	default:
		return nil, fmt.Errorf("unknown rate limit algorithm %q", alg)
	}
}
