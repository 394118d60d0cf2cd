/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/log/logtest"
	"github.com/predictdash/predictdash/testutil"
)

type headerRecorder struct {
	mu      sync.Mutex
	headers []http.Header
}

func (r *headerRecorder) UpdateFromHeader(h http.Header) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers = append(r.headers, h.Clone())
	return h.Get("X-Ratelimit-Remaining") != ""
}

func newTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Retries.Policy = PolicyConfig{Strategy: RetryPolicyConstant, ConstantBackoffInterval: time.Millisecond}
	cfg.Logger.SlowRequestThreshold = time.Hour
	return cfg
}

func TestNewWithOpts(t *testing.T) {
	var mu sync.Mutex
	var gotRequests []*http.Request
	statuses := []int{http.StatusServiceUnavailable, http.StatusOK}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotRequests = append(gotRequests, r.Clone(context.Background()))
		rw.Header().Set("X-Ratelimit-Remaining", "9")
		rw.WriteHeader(statuses[len(gotRequests)-1])
	}))
	defer server.Close()

	logger := logtest.NewRecorder()
	observer := &headerRecorder{}
	collector := NewPrometheusMetricsCollector("")

	client, err := NewWithOpts(newTestConfig(), Opts{
		UserAgent:      "predictdash/test",
		RequestType:    "markets",
		LoggerProvider: func(ctx context.Context) log.FieldLogger { return logger },
		AuthProvider:   StaticTokenProvider("secret-key"),
		HeaderObserver: observer,
		Collector:      collector,
	})
	require.NoError(t, err)
	require.Equal(t, DefaultClientTimeout, client.Timeout)

	lp := &middleware.LoggingParams{}
	ctx := middleware.NewContextWithRequestID(context.Background(), "req-1")
	ctx = middleware.NewContextWithLoggingParams(ctx, lp)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/polymarket/markets", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, gotRequests, 2)
	for i, r := range gotRequests {
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		require.Equal(t, "predictdash/test", r.Header.Get("User-Agent"))
		require.Equal(t, "req-1", r.Header.Get(middleware.HeaderRequestID))
		if i == 0 {
			require.Empty(t, r.Header.Get(RetryAttemptNumberHeader))
		} else {
			require.Equal(t, "1", r.Header.Get(RetryAttemptNumberHeader))
		}
	}

	require.Len(t, observer.headers, 2)

	_, found := logger.FindEntry("upstream request completed with error status")
	require.True(t, found)
	_, found = logger.FindEntry("upstream request completed")
	require.True(t, found)

	for _, status := range []string{"503", "200"} {
		hist := collector.Durations.With(prometheus.Labels{"type": "markets", "method": http.MethodGet, "status": status})
		testutil.RequireSamplesCountInHistogram(t, hist.(prometheus.Histogram), 1)
	}
}

func TestNewWithOpts_NoRetryOn429(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls++
		rw.Header().Set("X-Ratelimit-Remaining", "0")
		rw.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	observer := &headerRecorder{}
	client := MustWithOpts(newTestConfig(), Opts{HeaderObserver: observer})
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, 1, calls)
	require.Len(t, observer.headers, 1)
	require.Equal(t, "0", observer.headers[0].Get("X-Ratelimit-Remaining"))
}

func TestNewWithOpts_RetriesDisabled(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls++
		rw.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := newTestConfig()
	cfg.Retries.Enabled = false
	client, err := New(cfg)
	require.NoError(t, err)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, 1, calls)
}

func TestNewWithOpts_EmptyToken(t *testing.T) {
	client := MustWithOpts(newTestConfig(), Opts{AuthProvider: StaticTokenProvider("")})
	_, err := client.Get("http://127.0.0.1:1") //nolint:noctx
	require.ErrorIs(t, err, ErrEmptyToken)
	var authErr *AuthBearerRoundTripperError
	require.ErrorAs(t, err, &authErr)
}
