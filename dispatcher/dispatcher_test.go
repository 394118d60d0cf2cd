/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dispatcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/predictdash/predictdash/httpserver/middleware"
)

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newHTTPResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type execution struct {
	url   string
	start time.Time
}

type recordingDoer struct {
	clock clockwork.Clock
	mu    sync.Mutex
	execs []execution
	fail  map[string]error
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.execs = append(d.execs, execution{url: req.URL.String(), start: d.clock.Now()})
	err := d.fail[req.URL.Path]
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if req.URL.Path == "/missing" {
		return newHTTPResponse(http.StatusNotFound, `{"error":"not found"}`), nil
	}
	return newHTTPResponse(http.StatusOK, `{"path":"`+req.URL.Path+`"}`), nil
}

func (d *recordingDoer) executions() []execution {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]execution{}, d.execs...)
}

func waitDone(t *testing.T, p *Pending) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("request has not been executed")
	}
}

func TestDispatcher_FIFOAndPacing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	doer := &recordingDoer{clock: clock}
	metrics := NewPrometheusMetrics("")
	d := NewWithOpts(doer, Opts{Clock: clock, MetricsCollector: metrics})
	require.Equal(t, DefaultMinDelay, d.MinDelay())

	ctx := context.Background()
	p1 := d.Enqueue(ctx, Request{URL: "http://upstream/a"})
	p2 := d.Enqueue(ctx, Request{URL: "http://upstream/b"})
	p3 := d.Enqueue(ctx, Request{URL: "http://upstream/c"})

	waitDone(t, p1)
	for _, p := range []*Pending{p2, p3} {
		clock.BlockUntil(1)
		select {
		case <-p.Done():
			t.Fatal("next request must not start before the minimum delay has passed")
		default:
		}
		clock.Advance(DefaultMinDelay)
		waitDone(t, p)
	}

	execs := doer.executions()
	require.Len(t, execs, 3)
	for i, wantPath := range []string{"/a", "/b", "/c"} {
		require.Equal(t, "http://upstream"+wantPath, execs[i].url)
		if i > 0 {
			require.GreaterOrEqual(t, execs[i].start.Sub(execs[i-1].start), DefaultMinDelay)
		}
	}
	require.GreaterOrEqual(t, execs[2].start.Sub(execs[0].start), 2*DefaultMinDelay)

	resp, err := p3.Wait(ctx)
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	require.JSONEq(t, `{"path":"/c"}`, string(resp.Body))

	// The loop stops after the last pause and restarts on the next enqueue.
	clock.BlockUntil(1)
	clock.Advance(DefaultMinDelay)
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return !d.running
	}, 5*time.Second, 10*time.Millisecond)

	p4 := d.Enqueue(ctx, Request{URL: "http://upstream/d"})
	waitDone(t, p4)
	require.Equal(t, int64(4), d.Stats().Executions)
	require.Equal(t, 4.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(OutcomeSuccess)))
}

func TestDispatcher_FailureDoesNotBlockQueue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	doer := &recordingDoer{clock: clock, fail: map[string]error{"/broken": errors.New("connection refused")}}
	metrics := NewPrometheusMetrics("")
	d := NewWithOpts(doer, Opts{Clock: clock, MinDelay: time.Second, MetricsCollector: metrics})

	ctx := context.Background()
	p1 := d.Enqueue(ctx, Request{URL: "http://upstream/broken"})
	p2 := d.Enqueue(ctx, Request{URL: "http://upstream/missing"})
	p3 := d.Enqueue(ctx, Request{URL: "http://upstream/ok"})

	waitDone(t, p1)
	_, err := p1.Wait(ctx)
	require.EqualError(t, err, "connection refused")

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitDone(t, p2)
	resp, err := p2.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.False(t, resp.IsSuccess())

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitDone(t, p3)
	_, err = p3.Wait(ctx)
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(OutcomeTransportError)))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(OutcomeUpstreamError)))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Executions.WithLabelValues(OutcomeSuccess)))
}

func TestDispatcher_PanicInDoerIsDelivered(t *testing.T) {
	d := NewWithOpts(doerFunc(func(req *http.Request) (*http.Response, error) {
		panic("boom")
	}), Opts{MinDelay: time.Millisecond})
	_, err := d.Enqueue(context.Background(), Request{URL: "http://upstream/a"}).Wait(context.Background())
	require.EqualError(t, err, "upstream call panicked: boom")
}

func TestDispatcher_CallerStopsWaiting(t *testing.T) {
	clock := clockwork.NewFakeClock()
	doer := &recordingDoer{clock: clock}
	d := NewWithOpts(doer, Opts{Clock: clock, MinDelay: time.Second})

	p1 := d.Enqueue(context.Background(), Request{URL: "http://upstream/a"})
	waitDone(t, p1)

	ctx, cancel := context.WithCancel(context.Background())
	ctx = middleware.NewContextWithRequestID(ctx, "req-1")
	var gotCtx context.Context
	d.doer = doerFunc(func(req *http.Request) (*http.Response, error) {
		gotCtx = req.Context()
		return newHTTPResponse(http.StatusOK, `{}`), nil
	})
	p2 := d.Enqueue(ctx, Request{URL: "http://upstream/b"})
	cancel()

	_, err := p2.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, d.QueueLength())

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitDone(t, p2)
	resp, err := p2.Wait(context.Background())
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())
	require.NoError(t, gotCtx.Err())
	require.Equal(t, "req-1", middleware.GetRequestIDFromContext(gotCtx))
}

func TestDispatcher_SingleCallInFlight(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	d := NewWithOpts(doerFunc(func(req *http.Request) (*http.Response, error) {
		n := inFlight.Inc()
		defer inFlight.Dec()
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		return newHTTPResponse(http.StatusOK, `{}`), nil
	}), Opts{MinDelay: time.Millisecond})

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Enqueue(context.Background(), Request{URL: "http://upstream/markets"}).Wait(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), maxInFlight.Load())
	require.Equal(t, int64(callers), d.Stats().Executions)
}

func TestDispatcher_RequestHeaders(t *testing.T) {
	var gotReq *http.Request
	d := NewWithOpts(doerFunc(func(req *http.Request) (*http.Response, error) {
		gotReq = req
		return newHTTPResponse(http.StatusOK, `{}`), nil
	}), Opts{MinDelay: time.Millisecond})

	_, err := d.Enqueue(context.Background(), Request{
		URL:    "http://upstream/markets?limit=10",
		Header: http.Header{"Accept": {"application/json"}},
	}).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, gotReq.Method)
	require.Equal(t, "application/json", gotReq.Header.Get("Accept"))
	require.Equal(t, "10", gotReq.URL.Query().Get("limit"))
}
