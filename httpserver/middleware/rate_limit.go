/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/predictdash/predictdash/internal/ratelimit"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/restapi"
)

// RateLimitErrMessage is a message that is used in a response body
// if the request is rejected by the middleware that limits the rate of HTTP requests.
const RateLimitErrMessage = "Too many requests"

// RateLimitLogFieldKey it is the name of the logged field that contains a key for the requests rate limiter.
const RateLimitLogFieldKey = "rate_limit_key"

// Rate describes the frequency of requests.
type Rate = ratelimit.Rate

// RateLimitAlg represents a type for specifying rate-limiting algorithm.
type RateLimitAlg = ratelimit.Alg

// Supported rate-limiting algorithms.
const (
	RateLimitAlgLeakyBucket   = ratelimit.AlgLeakyBucket
	RateLimitAlgSlidingWindow = ratelimit.AlgSlidingWindow
)

// RateLimitGetKeyFunc is a function that is called for getting key for rate limiting.
// Empty key with bypass set to true means the request is not limited.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool)

// RateLimitOpts represents an options for the RateLimit middleware.
type RateLimitOpts struct {
	Alg      RateLimitAlg
	MaxBurst int
	MaxKeys  int
	// GetKey is GetClientIP-based by default.
	GetKey RateLimitGetKeyFunc
	DryRun bool
}

type rateLimitHandler struct {
	next    http.Handler
	limiter ratelimit.Limiter
	getKey  RateLimitGetKeyFunc
	dryRun  bool
}

// RateLimitByClientIP is a default RateLimitGetKeyFunc, every client IP address has its own limit.
func RateLimitByClientIP(r *http.Request) (key string, bypass bool) {
	return GetClientIP(r), false
}

// RateLimit is a middleware that limits the rate of HTTP requests per client.
func RateLimit(maxRate Rate) (func(next http.Handler) http.Handler, error) {
	return RateLimitWithOpts(maxRate, RateLimitOpts{})
}

// RateLimitWithOpts is a configurable version of a middleware to limit the rate of HTTP requests.
func RateLimitWithOpts(maxRate Rate, opts RateLimitOpts) (func(next http.Handler) http.Handler, error) {
	limiter, err := ratelimit.NewLimiter(opts.Alg, maxRate, opts.MaxBurst, opts.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("new rate limiter: %w", err)
	}
	getKey := opts.GetKey
	if getKey == nil {
		getKey = RateLimitByClientIP
	}
	return func(next http.Handler) http.Handler {
		return &rateLimitHandler{next: next, limiter: limiter, getKey: getKey, dryRun: opts.DryRun}
	}, nil
}

// MustRateLimitWithOpts is a version of RateLimitWithOpts that panics if an error occurs.
func MustRateLimitWithOpts(maxRate Rate, opts RateLimitOpts) func(next http.Handler) http.Handler {
	mw, err := RateLimitWithOpts(maxRate, opts)
	if err != nil {
		panic(err)
	}
	return mw
}

func (h *rateLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	key, bypass := h.getKey(r)
	if bypass {
		h.next.ServeHTTP(rw, r)
		return
	}

	logger := GetLoggerFromContext(r.Context())

	allow, retryAfter, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		if logger != nil {
			logger.Error("rate limiting failed", log.Error(err), log.String(RateLimitLogFieldKey, key))
		}
		restapi.RespondInternalError(rw, GetRequestIDFromContext(r.Context()), logger)
		return
	}
	if allow {
		h.next.ServeHTTP(rw, r)
		return
	}

	if h.dryRun {
		if logger != nil {
			logger.Warn("too many requests, serving will be continued because of dry run mode",
				log.String(RateLimitLogFieldKey, key))
		}
		h.next.ServeHTTP(rw, r)
		return
	}

	if logger != nil {
		logger = logger.With(log.String(RateLimitLogFieldKey, key), log.String(userAgentLogFieldKey, r.UserAgent()))
	}
	if retryAfter > 0 {
		rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	restapi.RespondError(rw, http.StatusTooManyRequests, restapi.NewError(RateLimitErrMessage), logger)
}
