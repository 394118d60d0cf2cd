/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dispatcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of an upstream call execution.
const (
	OutcomeSuccess        = "success"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeTransportError = "transport_error"
)

func outcomeOf(resp *Response, err error) string {
	switch {
	case err != nil:
		return OutcomeTransportError
	case !resp.IsSuccess():
		return OutcomeUpstreamError
	default:
		return OutcomeSuccess
	}
}

// MetricsCollector collects dispatcher metrics.
type MetricsCollector interface {
	SetQueueLength(n int)
	IncExecutions(outcome string)
	ObserveWait(d time.Duration)
}

// PrometheusMetrics is a Prometheus implementation of MetricsCollector.
type PrometheusMetrics struct {
	QueueLength   prometheus.Gauge
	Executions    *prometheus.CounterVec
	WaitDurations prometheus.Histogram
}

// NewPrometheusMetrics creates dispatcher metrics in the given namespace.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatcher_queue_length",
			Help:      "Number of upstream calls waiting in the dispatcher queue.",
		}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatcher_executions_total",
			Help:      "Number of executed upstream calls by outcome.",
		}, []string{"outcome"}),
		WaitDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatcher_wait_duration_seconds",
			Help:      "Time upstream calls spend in the dispatcher queue before execution.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.QueueLength, pm.Executions, pm.WaitDurations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueueLength)
	prometheus.Unregister(pm.Executions)
	prometheus.Unregister(pm.WaitDurations)
}

// SetQueueLength implements MetricsCollector.
func (pm *PrometheusMetrics) SetQueueLength(n int) {
	pm.QueueLength.Set(float64(n))
}

// IncExecutions implements MetricsCollector.
func (pm *PrometheusMetrics) IncExecutions(outcome string) {
	pm.Executions.WithLabelValues(outcome).Inc()
}

// ObserveWait implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveWait(d time.Duration) {
	pm.WaitDurations.Observe(d.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) SetQueueLength(int)        {}
func (disabledMetrics) IncExecutions(string)      {}
func (disabledMetrics) ObserveWait(time.Duration) {}
