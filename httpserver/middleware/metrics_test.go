/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	apptestutil "github.com/predictdash/predictdash/testutil"
)

func TestHTTPRequestMetrics(t *testing.T) {
	collector := NewHTTPRequestMetricsCollector()

	router := chi.NewRouter()
	router.Use(HTTPRequestMetricsWithOpts(collector, GetChiRoutePattern, HTTPRequestMetricsOpts{
		ExcludedEndpoints: []string{"/metrics"},
	}))
	router.Get("/api/market-price/{tokenId}", func(rw http.ResponseWriter, r *http.Request) {
		require.Equal(t, 1.0, testutil.ToFloat64(collector.InFlight.With(prometheus.Labels{
			httpRequestMetricsLabelMethod:        http.MethodGet,
			httpRequestMetricsLabelUserAgentType: userAgentTypeBrowser,
		})))
		rw.WriteHeader(http.StatusOK)
	})
	router.Get("/metrics", func(rw http.ResponseWriter, r *http.Request) {})
	router.Get("/panic", func(rw http.ResponseWriter, r *http.Request) { panic("boom") })

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/market-price/123", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Panics(t, func() {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	hist := collector.Durations.With(prometheus.Labels{
		httpRequestMetricsLabelMethod:        http.MethodGet,
		httpRequestMetricsLabelRoutePattern:  "/api/market-price/{tokenId}",
		httpRequestMetricsLabelUserAgentType: userAgentTypeBrowser,
		httpRequestMetricsLabelStatusCode:    "200",
	}).(prometheus.Histogram)
	apptestutil.RequireSamplesCountInHistogram(t, hist, 2)

	panicHist := collector.Durations.With(prometheus.Labels{
		httpRequestMetricsLabelMethod:        http.MethodGet,
		httpRequestMetricsLabelRoutePattern:  "/panic",
		httpRequestMetricsLabelUserAgentType: userAgentTypeHTTPClient,
		httpRequestMetricsLabelStatusCode:    "500",
	}).(prometheus.Histogram)
	apptestutil.RequireSamplesCountInHistogram(t, panicHist, 1)

	// 2 series observed, /metrics is excluded.
	require.Equal(t, 2, testutil.CollectAndCount(collector.Durations))
}
