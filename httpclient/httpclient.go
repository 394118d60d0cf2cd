/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the outbound HTTP client used to call the Dome API.
// The client is a chain of round trippers: retries, request id, user agent, bearer auth,
// metrics, logging and quota header observation.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/netutil"
)

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// UserAgent is set when the request has no User-Agent header.
	UserAgent string

	// RequestType labels requests in logs and metrics when the context carries none.
	RequestType string

	// Delegate is the innermost RoundTripper. http.DefaultTransport clone by default.
	Delegate http.RoundTripper

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Logger is used by the retry layer when LoggerProvider yields nothing.
	Logger log.FieldLogger

	// AuthProvider enables bearer authorization.
	AuthProvider AuthProvider

	// HeaderObserver receives headers of every upstream response (including retried attempts).
	HeaderObserver HeaderObserver

	// Collector is a metrics collector.
	Collector MetricsCollector
}

// New creates a client from the configuration with default options.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts wraps the delegate transport with the round trippers enabled in cfg and opts.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if len(cfg.DNS.Servers) != 0 {
			dialer := &net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
				Resolver:  netutil.NewCustomDNSResolver(cfg.DNS.Servers, cfg.DNS.Timeout),
			}
			transport.DialContext = dialer.DialContext
		}
		delegate = transport
	}

	if opts.HeaderObserver != nil {
		delegate = NewHeaderObserverRoundTripper(delegate, opts.HeaderObserver)
	}
	if cfg.Logger.Enabled {
		delegate = NewLoggingRoundTripperWithOpts(delegate, LoggingRoundTripperOpts{
			LoggerProvider:       opts.LoggerProvider,
			RequestType:          opts.RequestType,
			Mode:                 cfg.Logger.Mode,
			SlowRequestThreshold: cfg.Logger.SlowRequestThreshold,
		})
	}
	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.RequestType, opts.Collector)
	}
	if opts.AuthProvider != nil {
		delegate = NewAuthBearerRoundTripper(delegate, opts.AuthProvider)
	}
	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}
	delegate = NewRequestIDRoundTripper(delegate)

	if cfg.Retries.Enabled {
		var err error
		delegate, err = NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{
			Logger:           opts.Logger,
			LoggerProvider:   opts.LoggerProvider,
			MaxRetryAttempts: cfg.Retries.MaxAttempts,
			BackoffPolicy:    cfg.Retries.GetPolicy(),
		})
		if err != nil {
			return nil, fmt.Errorf("create retryable round tripper: %w", err)
		}
	}

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts works like NewWithOpts but panics on error.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
