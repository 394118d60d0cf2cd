/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRequestType labels requests whose context carries no request type.
const DefaultRequestType = "unknown"

// MetricsCollector is an interface for collecting metrics for client requests.
type MetricsCollector interface {
	RequestDuration(requestType, method, status string, startTime time.Time)
}

// PrometheusMetricsCollector is a Prometheus metrics collector.
type PrometheusMetricsCollector struct {
	Durations *prometheus.HistogramVec
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "A histogram of the upstream http requests durations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"type", "method", "status"}),
	}
}

// MustRegisterMetrics registers the Prometheus metrics.
func (p *PrometheusMetricsCollector) MustRegisterMetrics() {
	prometheus.MustRegister(p.Durations)
}

// UnregisterMetrics unregisters the Prometheus metrics.
func (p *PrometheusMetricsCollector) UnregisterMetrics() {
	prometheus.Unregister(p.Durations)
}

// RequestDuration observes the duration of the request and the status code.
func (p *PrometheusMetricsCollector) RequestDuration(requestType, method, status string, start time.Time) {
	p.Durations.WithLabelValues(requestType, method, status).Observe(time.Since(start).Seconds())
}

// MetricsRoundTripper is an HTTP transport that measures requests done.
type MetricsRoundTripper struct {
	Delegate    http.RoundTripper
	RequestType string
	Collector   MetricsCollector
}

// NewMetricsRoundTripper creates an HTTP transport that measures requests done.
// requestType is used when the request context carries none.
func NewMetricsRoundTripper(delegate http.RoundTripper, requestType string, collector MetricsCollector) http.RoundTripper {
	if requestType == "" {
		requestType = DefaultRequestType
	}
	return &MetricsRoundTripper{Delegate: delegate, RequestType: requestType, Collector: collector}
}

// RoundTrip measures external requests done.
func (rt *MetricsRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Collector == nil {
		return rt.Delegate.RoundTrip(r)
	}
	status := "0"
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	rt.Collector.RequestDuration(requestTypeOrDefault(r.Context(), rt.RequestType), r.Method, status, start)
	return resp, err
}
