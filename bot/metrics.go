/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package bot

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects bot metrics.
type MetricsCollector interface {
	IncSignals(action string)
}

// PrometheusMetrics is a Prometheus implementation of MetricsCollector.
type PrometheusMetrics struct {
	Signals *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_signals_total",
			Help:      "Number of trading signals produced by the bot.",
		}, []string{"action"}),
	}
}

// MustRegisterMetrics registers the collectors in the default registry.
func (pm *PrometheusMetrics) MustRegisterMetrics() {
	prometheus.MustRegister(pm.Signals)
}

// UnregisterMetrics removes the collectors from the default registry.
func (pm *PrometheusMetrics) UnregisterMetrics() {
	prometheus.Unregister(pm.Signals)
}

// IncSignals increments the counter of signals of the action.
func (pm *PrometheusMetrics) IncSignals(action string) {
	pm.Signals.WithLabelValues(action).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncSignals(string) {}
