/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/predictdash/predictdash/log"
)

// UnlimitedRetryAttempts stops retries only by the backoff policy.
const UnlimitedRetryAttempts = -1

// RetryAttemptNumberHeader is an HTTP header name that will contain the serial number of the retry attempt.
const RetryAttemptNumberHeader = "X-Retry-Attempt"

// BackoffPolicy creates a fresh backoff.BackOff for every retried request.
type BackoffPolicy interface {
	NewBackOff() backoff.BackOff
}

// BackoffPolicyFunc allows using a function as BackoffPolicy.
type BackoffPolicyFunc func() backoff.BackOff

// NewBackOff implements BackoffPolicy.
func (f BackoffPolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DefaultBackoffPolicy is exponential backoff starting from DefaultExponentialBackoffInitialInterval.
var DefaultBackoffPolicy = BackoffPolicyFunc(func() backoff.BackOff {
	bf := backoff.NewExponentialBackOff()
	bf.InitialInterval = DefaultExponentialBackoffInitialInterval
	bf.Multiplier = DefaultExponentialBackoffMultiplier
	bf.Reset()
	return bf
})

// CheckRetryFunc is a function that is called right after RoundTrip() method
// and determines if the next retry attempt is needed.
type CheckRetryFunc func(ctx context.Context, resp *http.Response, roundTripErr error, doneRetryAttempts int) (bool, error)

// RetryableRoundTripper wraps an object that implements http.RoundTripper interface
// and provides a retrying mechanism for HTTP requests.
type RetryableRoundTripper struct {
	Delegate         http.RoundTripper
	Logger           log.FieldLogger
	LoggerProvider   func(ctx context.Context) log.FieldLogger
	MaxRetryAttempts int
	CheckRetry       CheckRetryFunc
	IgnoreRetryAfter bool
	BackoffPolicy    BackoffPolicy
}

// RetryableRoundTripperOpts represents an options for RetryableRoundTripper.
type RetryableRoundTripperOpts struct {
	Logger         log.FieldLogger
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// MaxRetryAttempts determines how many retry attempts can be done after the first request.
	// 0 means DefaultMaxRetryAttempts.
	MaxRetryAttempts int

	// CheckRetryFunc defaults to DefaultCheckRetry.
	CheckRetryFunc CheckRetryFunc

	// IgnoreRetryAfter disables waiting for the Retry-After response header value.
	IgnoreRetryAfter bool

	// BackoffPolicy defaults to DefaultBackoffPolicy.
	BackoffPolicy BackoffPolicy
}

// NewRetryableRoundTripperWithOpts creates a new instance of RetryableRoundTripper with specified options.
func NewRetryableRoundTripperWithOpts(
	delegate http.RoundTripper, opts RetryableRoundTripperOpts,
) (*RetryableRoundTripper, error) {
	if opts.MaxRetryAttempts < 0 && opts.MaxRetryAttempts != UnlimitedRetryAttempts {
		return nil, fmt.Errorf("incorrect max retry attempts")
	}
	if opts.MaxRetryAttempts == 0 {
		opts.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.CheckRetryFunc == nil {
		opts.CheckRetryFunc = DefaultCheckRetry
	}
	if opts.BackoffPolicy == nil {
		opts.BackoffPolicy = DefaultBackoffPolicy
	}
	return &RetryableRoundTripper{
		Delegate:         delegate,
		Logger:           opts.Logger,
		LoggerProvider:   opts.LoggerProvider,
		MaxRetryAttempts: opts.MaxRetryAttempts,
		CheckRetry:       opts.CheckRetryFunc,
		IgnoreRetryAfter: opts.IgnoreRetryAfter,
		BackoffPolicy:    opts.BackoffPolicy,
	}, nil
}

// RoundTrip performs request with retry logic.
func (rt *RetryableRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rewindReqBody := func(*http.Request) error { return nil }
	if req.Body != nil && req.Body != http.NoBody {
		originalReqBody := req.Body
		defer func() { _ = originalReqBody.Close() }() // Per RoundTripper contract.
		bufferedReqBody, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, &RetryableRoundTripperError{Inner: fmt.Errorf("read request body: %w", err)}
		}
		rewindReqBody = func(r *http.Request) error {
			r.Body = io.NopCloser(bytes.NewReader(bufferedReqBody))
			return nil
		}
	}

	ctx := req.Context()
	bf := rt.BackoffPolicy.NewBackOff()
	reqCloned := false
	var resp *http.Response
	var roundTripErr error
	for attempt := 0; ; attempt++ {
		_ = rewindReqBody(req)
		if resp != nil && roundTripErr == nil {
			rt.drainResponseBody(ctx, resp)
		}
		if attempt > 0 {
			if !reqCloned {
				req, reqCloned = req.Clone(ctx), true // Per RoundTripper contract.
				_ = rewindReqBody(req)
			}
			req.Header.Set(RetryAttemptNumberHeader, strconv.Itoa(attempt))
		}

		resp, roundTripErr = rt.Delegate.RoundTrip(req)

		needRetry, checkErr := rt.CheckRetry(ctx, resp, roundTripErr, attempt)
		if checkErr != nil {
			rt.logger(ctx).Error(fmt.Sprintf("failed to check if retry is needed, %d request(s) done", attempt+1),
				log.Error(checkErr))
			return resp, roundTripErr
		}
		if !needRetry {
			return resp, roundTripErr
		}
		if rt.MaxRetryAttempts > 0 && attempt >= rt.MaxRetryAttempts {
			rt.logger(ctx).Warnf("max retry attempts exceeded (%d), %d request(s) done", rt.MaxRetryAttempts, attempt+1)
			return resp, roundTripErr
		}

		waitTime, ok := rt.nextWaitTime(bf, resp)
		if !ok {
			return resp, roundTripErr
		}
		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			rt.logger(ctx).Warnf("context canceled (%v) while waiting for the next retry attempt, %d request(s) done",
				ctx.Err(), attempt+1)
			return resp, roundTripErr
		case <-timer.C:
		}
	}
}

func (rt *RetryableRoundTripper) nextWaitTime(bf backoff.BackOff, resp *http.Response) (time.Duration, bool) {
	if resp != nil && !rt.IgnoreRetryAfter {
		if retryAfter, ok := parseRetryAfterFromResponse(resp); ok {
			return retryAfter, true
		}
	}
	waitTime := bf.NextBackOff()
	return waitTime, waitTime != backoff.Stop
}

func (rt *RetryableRoundTripper) drainResponseBody(ctx context.Context, resp *http.Response) {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			rt.logger(ctx).Error("failed to close previous response body between retry attempts", log.Error(closeErr))
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		rt.logger(ctx).Error("failed to discard previous response body between retry attempts", log.Error(err))
	}
}

func (rt *RetryableRoundTripper) logger(ctx context.Context) log.FieldLogger {
	if rt.LoggerProvider != nil {
		if l := rt.LoggerProvider(ctx); l != nil {
			return l
		}
	}
	return rt.Logger
}

// RetryableRoundTripperError is returned in RoundTrip method of RetryableRoundTripper
// when the original request cannot be potentially retried.
type RetryableRoundTripperError struct {
	Inner error
}

func (e *RetryableRoundTripperError) Error() string {
	return fmt.Sprintf("retryable round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RetryableRoundTripperError) Unwrap() error {
	return e.Inner
}

// DefaultCheckRetry retries temporary network errors and 502/503/504 responses.
// 429 is not retried: the quota snapshot is reported to the caller instead.
func DefaultCheckRetry(
	ctx context.Context, resp *http.Response, roundTripErr error, _ int,
) (needRetry bool, err error) {
	if roundTripErr != nil {
		return ctx.Err() == nil && CheckErrorIsTemporary(roundTripErr), nil
	}
	if resp == nil {
		return false, fmt.Errorf("both response and round trip error are nil")
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

// CheckErrorIsTemporary checks either error is temporary or not.
func CheckErrorIsTemporary(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var terr interface{ Temporary() bool }
	return errors.As(err, &terr) && terr.Temporary()
}

func parseRetryAfterFromResponse(resp *http.Response) (time.Duration, bool) {
	retryAfterVal := resp.Header.Get("Retry-After")
	if retryAfterVal == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(retryAfterVal)
	if err != nil {
		parsedTime, parseErr := time.Parse(time.RFC1123, retryAfterVal)
		if parseErr != nil {
			return 0, false
		}
		return time.Until(parsedTime), true
	}
	if secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
