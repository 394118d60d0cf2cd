/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// LoggingRoundTripper implements http.RoundTripper for logging upstream requests.
type LoggingRoundTripper struct {
	Delegate http.RoundTripper
	Opts     LoggingRoundTripperOpts
}

// LoggingRoundTripperOpts represents an options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// LoggerProvider is a function that provides a context-specific logger.
	// middleware.GetLoggerFromContext is used by default.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestType is used when the request context carries none.
	RequestType string

	Mode LoggingMode

	// Requests faster than this are logged at debug level only.
	SlowRequestThreshold time.Duration
}

// NewLoggingRoundTripperWithOpts creates an HTTP transport that logs requests.
func NewLoggingRoundTripperWithOpts(delegate http.RoundTripper, opts LoggingRoundTripperOpts) http.RoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	return &LoggingRoundTripper{Delegate: delegate, Opts: opts}
}

func (rt *LoggingRoundTripper) getLogger(ctx context.Context) log.FieldLogger {
	if rt.Opts.LoggerProvider != nil {
		return rt.Opts.LoggerProvider(ctx)
	}
	return middleware.GetLoggerFromContext(ctx)
}

// RoundTrip adds logging capabilities to the HTTP transport.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(r)
	}

	ctx := r.Context()
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	elapsed := time.Since(start)

	logger := rt.getLogger(ctx)
	if logger == nil {
		return resp, err
	}
	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	if rt.Opts.Mode == LoggingModeFailed && !failed {
		return resp, err
	}

	reqType := requestTypeOrDefault(ctx, rt.Opts.RequestType)
	fields := []log.Field{
		log.String("method", r.Method),
		log.String("uri", r.URL.Path),
		log.String("request_type", reqType),
		log.DurationIn(elapsed, time.Millisecond),
	}
	switch {
	case err != nil:
		logger.Error("upstream request failed", append(fields, log.Error(err))...)
	case failed:
		logger.Warn("upstream request completed with error status", append(fields, log.Int("status", resp.StatusCode))...)
	case elapsed >= rt.Opts.SlowRequestThreshold:
		logger.Info("upstream request completed", append(fields, log.Int("status", resp.StatusCode))...)
	default:
		logger.Debug("upstream request completed", append(fields, log.Int("status", resp.StatusCode))...)
	}

	if loggingParams := middleware.GetLoggingParamsFromContext(ctx); loggingParams != nil {
		loggingParams.AddTimeSlotDurationInMs("upstream_"+reqType+"_ms", elapsed)
	}
	return resp, err
}
