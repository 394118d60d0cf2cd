/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/restapi"
)

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	// IndexHandler serves "GET /". Not registered if nil.
	IndexHandler http.Handler
	// APIRoutes registers endpoints under the /api prefix.
	APIRoutes APIRoute
	// APIMiddlewares are applied to /api routes only.
	APIMiddlewares []func(http.Handler) http.Handler
	HealthCheck    HealthCheck
	MetricsHandler http.Handler
}

// NewRouter creates a new chi.Router and performs its basic configuration.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {
	router := chi.NewRouter()
	configureRouter(router, logger, opts)
	return router
}

func configureRouter(router chi.Router, logger log.FieldLogger, opts RouterOpts) {
	// Expose endpoint for Prometheus.
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, "/metrics", metricsHandler)
	router.Method(http.MethodGet, "/healthz", NewHealthCheckHandler(opts.HealthCheck))

	if opts.IndexHandler != nil {
		router.Method(http.MethodGet, "/", opts.IndexHandler)
	}
	if opts.APIRoutes != nil {
		router.Route("/api", func(router chi.Router) {
			router.Use(opts.APIMiddlewares...)
			opts.APIRoutes(router)
		})
	}

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondError(rw, http.StatusNotFound, restapi.NewError(restapi.ErrMessageNotFound), logger)
	})

	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondError(rw, http.StatusMethodNotAllowed, restapi.NewError(restapi.ErrMessageMethodNotAllowed), logger)
	})
}

func applyDefaultMiddlewaresToRouter(
	router chi.Router, cfg *Config, logger log.FieldLogger, opts *Opts, collector *middleware.HTTPRequestMetricsCollector,
) {
	router.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			handler.ServeHTTP(rw, r.WithContext(middleware.NewContextWithRequestStartTime(r.Context(), time.Now())))
		})
	})

	router.Use(middleware.RequestID())

	router.Use(middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
		RequestStart:         cfg.Log.RequestStart,
		ExcludedEndpoints:    cfg.Log.ExcludedEndpoints,
		SecretQueryParams:    cfg.Log.SecretQueryParams,
		SlowRequestThreshold: cfg.Log.SlowRequestThreshold,
	}))

	router.Use(middleware.Recovery())

	router.Use(middleware.HTTPRequestMetricsWithOpts(collector, middleware.GetChiRoutePattern,
		middleware.HTTPRequestMetricsOpts{ExcludedEndpoints: systemEndpoints}))

	// Preflight requests are answered here, before routing.
	router.Use(middleware.CORS(opts.CORS))

	if cfg.Limits.MaxBodySizeBytes > 0 {
		router.Use(middleware.RequestBodyLimit(uint64(cfg.Limits.MaxBodySizeBytes)))
	}

	router.Use(opts.RootMiddlewares...)
}

func makeAPIRateLimitMiddleware(cfg *Config) (func(http.Handler) http.Handler, error) {
	rl := cfg.Limits.RateLimit
	mw, err := middleware.RateLimitWithOpts(rl.Rate, middleware.RateLimitOpts{Alg: rl.Alg, MaxBurst: rl.Burst})
	if err != nil {
		return nil, fmt.Errorf("create api rate limit middleware: %w", err)
	}
	return mw, nil
}
