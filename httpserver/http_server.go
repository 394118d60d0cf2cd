/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/service"
)

// systemEndpoints is a list of endpoints which are not involved in metrics collecting.
var systemEndpoints = []string{"/metrics", "/healthz"}

// APIRoute registers routes on a chi.Router mounted at /api.
type APIRoute = func(router chi.Router)

// HTTPRequestMetricsOpts represents options for the metrics middleware that is used in HTTPServer.
type HTTPRequestMetricsOpts struct {
	Namespace       string
	DurationBuckets []float64
}

// Opts represents options for creating HTTPServer.
type Opts struct {
	// IndexHandler serves "GET /".
	IndexHandler http.Handler
	// APIRoutes registers endpoints under /api. The inbound rate limit (if enabled) is applied to them.
	APIRoutes APIRoute
	// RootMiddlewares are applied after the default ones.
	RootMiddlewares []func(http.Handler) http.Handler
	HealthCheck     HealthCheck
	// MetricsHandler is a custom handler for the /metrics endpoint. promhttp.Handler() is used by default.
	MetricsHandler     http.Handler
	HTTPRequestMetrics HTTPRequestMetricsOpts
	CORS               middleware.CORSOpts
	// Listener is a pre-configured network listener to use instead of creating a new one.
	Listener net.Listener
}

// HTTPServer represents a wrapper around http.Server with additional fields and methods.
// It implements service.Unit and service.MetricsRegisterer interfaces.
type HTTPServer struct {
	URL             string
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener         net.Listener
	port             int32
	httpServerDone   atomic.Value
	metricsCollector *middleware.HTTPRequestMetricsCollector
}

var _ service.Unit = (*HTTPServer)(nil)
var _ service.MetricsRegisterer = (*HTTPServer)(nil)

// New creates a new HTTPServer with predefined logging, metrics collecting,
// recovering after panics, CORS and health-checking functionality.
func New(cfg *Config, logger log.FieldLogger, opts Opts) (*HTTPServer, error) { //nolint // hugeParam: opts is heavy, it's ok in this case.
	collector := middleware.NewHTTPRequestMetricsCollectorWithOpts(middleware.HTTPRequestMetricsCollectorOpts{
		Namespace:       opts.HTTPRequestMetrics.Namespace,
		DurationBuckets: opts.HTTPRequestMetrics.DurationBuckets,
	})

	routerOpts := RouterOpts{
		IndexHandler:   opts.IndexHandler,
		APIRoutes:      opts.APIRoutes,
		HealthCheck:    opts.HealthCheck,
		MetricsHandler: opts.MetricsHandler,
	}
	if cfg.Limits.RateLimit.Enabled {
		rateLimitMw, err := makeAPIRateLimitMiddleware(cfg)
		if err != nil {
			return nil, err
		}
		routerOpts.APIMiddlewares = append(routerOpts.APIMiddlewares, rateLimitMw)
	}

	router := chi.NewRouter()
	applyDefaultMiddlewaresToRouter(router, cfg, logger, &opts, collector)
	configureRouter(router, logger, routerOpts)

	httpServer := &http.Server{
		Addr:              cfg.Address,
		WriteTimeout:      cfg.Timeouts.Write,
		ReadTimeout:       cfg.Timeouts.Read,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
		IdleTimeout:       cfg.Timeouts.Idle,
		Handler:           router,
	}
	return &HTTPServer{
		URL:              "http://" + cfg.Address,
		HTTPServer:       httpServer,
		HTTPRouter:       router,
		Logger:           logger,
		ShutdownTimeout:  cfg.Timeouts.Shutdown,
		listener:         opts.Listener,
		metricsCollector: collector,
	}, nil
}

// Start starts application HTTP server in a blocking way.
// It's supposed that this method will be called in a separate goroutine.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *HTTPServer) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)

	logger.Info("starting application HTTP server...")

	if s.listener == nil {
		listener, err := net.Listen("tcp", s.HTTPServer.Addr)
		if err != nil {
			logger.Error("application HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
		s.listener = listener
	}

	_, portStr, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		logger.Error("unexpected format of TCP listener address: unable to split host and port", log.Error(err))
		fatalError <- err
		return
	}
	port, err := strconv.ParseInt(portStr, 10, 32)
	if err != nil {
		logger.Error("unexpected format of TCP listener address: no numeric port", log.Error(err))
		fatalError <- fmt.Errorf("parse listener port: %w", err)
		return
	}
	atomic.StoreInt32(&s.port, int32(port))

	if err = s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("application HTTP server closed")
			return
		}
		logger.Error("application HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops application HTTP server (gracefully or not).
func (s *HTTPServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing application HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("application HTTP server closing error", log.Error(err))
			return err
		}
		s.waitServeReturned()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down application HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("application HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("application HTTP server shut down")
	s.waitServeReturned()
	return nil
}

func (s *HTTPServer) waitServeReturned() {
	if done, ok := s.httpServerDone.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (s *HTTPServer) MustRegisterMetrics() {
	s.metricsCollector.MustRegister()
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (s *HTTPServer) UnregisterMetrics() {
	s.metricsCollector.Unregister()
}

// GetPort returns the port the server listens on. It's 0 until the listener is ready.
func (s *HTTPServer) GetPort() int {
	return int(atomic.LoadInt32(&s.port))
}
