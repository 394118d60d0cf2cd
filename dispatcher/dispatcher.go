/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Package dispatcher serializes outbound calls to the upstream API.
//
// Requests are executed one at a time in strict FIFO order, and the start of every
// execution is separated from the previous one by at least the configured minimum delay.
// Callers enqueue requests concurrently and wait for their own outcome; a failed
// call never blocks or cancels the ones queued after it.
//
// The queue is unbounded. Once enqueued, a request runs to completion even if its caller
// stops waiting, so the upstream quota spent on it is still reflected in the quota tracker.
package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/atomic"

	"github.com/predictdash/predictdash/log"
)

// DefaultMinDelay is the default minimum delay between starts of successive upstream calls.
const DefaultMinDelay = 1100 * time.Millisecond

// Doer executes HTTP requests, *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes an outbound call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Type labels the call in logs and metrics (e.g. "markets", "market_price").
	Type string
}

// Response is an upstream response with the body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the upstream responded with a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Pending is a handle to the outcome of an enqueued request.
type Pending struct {
	done chan struct{}
	resp *Response
	err  error
}

// Done returns a channel that is closed when the outcome is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request is executed or ctx is done.
// Returning because of ctx doesn't remove the request from the queue.
func (p *Pending) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) resolve(resp *Response, err error) {
	p.resp, p.err = resp, err
	close(p.done)
}

type queuedRequest struct {
	ctx        context.Context
	req        Request
	pending    *Pending
	enqueuedAt time.Time
}

// Opts represents options for Dispatcher.
type Opts struct {
	// MinDelay is a pause after every execution before the next one may start. DefaultMinDelay if 0.
	MinDelay time.Duration
	// Clock is used for pacing. Real clock if nil.
	Clock clockwork.Clock
	// Logger is used when the request context carries no logger.
	Logger log.FieldLogger
	// LoggerProvider returns a request-specific logger, may be nil.
	LoggerProvider func(ctx context.Context) log.FieldLogger
	// MetricsCollector may be nil, metrics are disabled in this case.
	MetricsCollector MetricsCollector
}

// Dispatcher is a single-lane FIFO queue of outbound calls with a fixed pace.
type Dispatcher struct {
	doer     Doer
	minDelay time.Duration
	clock    clockwork.Clock
	logger   log.FieldLogger
	loggerFn func(ctx context.Context) log.FieldLogger
	metrics  MetricsCollector

	mu      sync.Mutex
	queue   []*queuedRequest
	running bool

	inFlight   atomic.Bool
	executions atomic.Int64
}

// New creates a new Dispatcher with default options.
func New(doer Doer) *Dispatcher {
	return NewWithOpts(doer, Opts{})
}

// NewWithOpts creates a new Dispatcher.
func NewWithOpts(doer Doer, opts Opts) *Dispatcher {
	if opts.MinDelay == 0 {
		opts.MinDelay = DefaultMinDelay
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &Dispatcher{
		doer:     doer,
		minDelay: opts.MinDelay,
		clock:    opts.Clock,
		logger:   opts.Logger,
		loggerFn: opts.LoggerProvider,
		metrics:  opts.MetricsCollector,
	}
}

// Enqueue appends the request to the queue and starts processing if it's not running yet.
// It never fails, the outcome (including errors) is delivered via the returned handle.
// Values of ctx (request id, logger) are kept for the execution, its cancellation is not.
func (d *Dispatcher) Enqueue(ctx context.Context, req Request) *Pending {
	qr := &queuedRequest{
		ctx:        context.WithoutCancel(ctx),
		req:        req,
		pending:    &Pending{done: make(chan struct{})},
		enqueuedAt: d.clock.Now(),
	}

	d.mu.Lock()
	d.queue = append(d.queue, qr)
	queueLen := len(d.queue)
	startLoop := !d.running
	d.running = true
	d.mu.Unlock()

	d.metrics.SetQueueLength(queueLen)
	if startLoop {
		go d.processQueue()
	}
	return qr.pending
}

// QueueLength returns the number of requests waiting for execution.
func (d *Dispatcher) QueueLength() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stats is a point-in-time view of the dispatcher state.
type Stats struct {
	QueueLength int   `json:"queueLength"`
	InFlight    bool  `json:"inFlight"`
	Executions  int64 `json:"executions"`
	MinDelayMs  int64 `json:"minDelayMs"`
}

// Stats returns the current dispatcher state.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		QueueLength: d.QueueLength(),
		InFlight:    d.inFlight.Load(),
		Executions:  d.executions.Load(),
		MinDelayMs:  d.minDelay.Milliseconds(),
	}
}

// MinDelay returns the minimum delay between starts of successive executions.
func (d *Dispatcher) MinDelay() time.Duration {
	return d.minDelay
}

func (d *Dispatcher) processQueue() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.running = false
			d.mu.Unlock()
			return
		}
		qr := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		queueLen := len(d.queue)
		d.mu.Unlock()

		d.metrics.SetQueueLength(queueLen)
		d.metrics.ObserveWait(d.clock.Since(qr.enqueuedAt))

		d.inFlight.Store(true)
		resp, err := d.execute(qr)
		d.inFlight.Store(false)
		d.executions.Inc()
		d.metrics.IncExecutions(outcomeOf(resp, err))
		qr.pending.resolve(resp, err)

		<-d.clock.After(d.minDelay)
	}
}

func (d *Dispatcher) execute(qr *queuedRequest) (resp *Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("upstream call panicked: %v", p)
			d.getLogger(qr.ctx).Error(err.Error(), log.String("request_type", qr.req.Type))
		}
	}()

	method := qr.req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(qr.ctx, method, qr.req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("make upstream request: %w", err)
	}
	for k, vs := range qr.req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := d.doer.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	var body bytes.Buffer
	if _, err = io.Copy(&body, httpResp.Body); err != nil {
		return nil, fmt.Errorf("read upstream response body: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body.Bytes()}, nil
}

func (d *Dispatcher) getLogger(ctx context.Context) log.FieldLogger {
	if d.loggerFn != nil {
		if l := d.loggerFn(ctx); l != nil {
			return l
		}
	}
	return d.logger
}
