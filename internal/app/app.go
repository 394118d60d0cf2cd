/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Package app wires the dashboard backend together: the Dome client behind the dispatcher
// and the response cache, the arbitrage checker, the auto-bot and the HTTP servers.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/predictdash/predictdash/api"
	"github.com/predictdash/predictdash/arbitrage"
	"github.com/predictdash/predictdash/bot"
	"github.com/predictdash/predictdash/cache"
	"github.com/predictdash/predictdash/dispatcher"
	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/httpclient"
	"github.com/predictdash/predictdash/httpserver"
	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/internal/version"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/profserver"
	"github.com/predictdash/predictdash/quota"
	"github.com/predictdash/predictdash/restapi"
	"github.com/predictdash/predictdash/service"
)

// HealthComponentDome is the health-check component that fails while no Dome API key is configured.
const HealthComponentDome = "dome"

// Opts represents options for New.
type Opts struct {
	// MetricsNamespace prefixes all Prometheus metrics. version.AppName if empty.
	MetricsNamespace string

	// Transport is the innermost transport of the Dome HTTP client. http.DefaultTransport clone if nil.
	Transport http.RoundTripper
}

// App holds the process-wide state: the dispatcher queue, the response cache,
// the quota snapshot and the bot flag. It implements service.Unit and service.MetricsRegisterer.
type App struct {
	Logger     log.FieldLogger
	Quota      *quota.Tracker
	Dispatcher *dispatcher.Dispatcher
	Cache      *cache.ResponseCache
	Dome       *dome.Client
	Arbitrage  *arbitrage.Checker
	BotState   *bot.State
	HTTPServer *httpserver.HTTPServer
	ProfServer *profserver.ProfServer

	unit       *service.CompositeUnit
	namespace  string
	collectors []prometheus.Collector
}

var _ service.Unit = (*App)(nil)
var _ service.MetricsRegisterer = (*App)(nil)

// New builds the application from the configuration.
func New(cfg *Config, logger log.FieldLogger) (*App, error) {
	return NewWithOpts(cfg, logger, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(cfg *Config, logger log.FieldLogger, opts Opts) (*App, error) {
	if opts.MetricsNamespace == "" {
		opts.MetricsNamespace = version.AppName
	}
	loggerProvider := middleware.GetLoggerFromContext

	a := &App{
		Logger:     logger,
		Quota:      quota.NewTracker(),
		namespace:  opts.MetricsNamespace,
		collectors: []prometheus.Collector{version.NewBuildInfoCollector()},
	}

	clientOpts := httpclient.Opts{
		UserAgent:      version.UserAgent(),
		RequestType:    "dome",
		Delegate:       opts.Transport,
		LoggerProvider: loggerProvider,
		Logger:         logger,
		HeaderObserver: a.Quota,
	}
	if cfg.Dome.APIKey != "" {
		clientOpts.AuthProvider = httpclient.StaticTokenProvider(cfg.Dome.APIKey)
	} else {
		logger.Warn("dome api key is not configured, upstream calls will be rejected")
	}
	if cfg.DomeClient.Metrics.Enabled {
		collector := httpclient.NewPrometheusMetricsCollector(opts.MetricsNamespace)
		clientOpts.Collector = collector
		a.collectors = append(a.collectors, collector.Durations)
	}
	httpClient, err := httpclient.NewWithOpts(cfg.DomeClient, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create dome http client: %w", err)
	}

	dispatcherMetrics := dispatcher.NewPrometheusMetrics(opts.MetricsNamespace)
	a.Dispatcher = dispatcher.NewWithOpts(httpClient, dispatcher.Opts{
		MinDelay:         cfg.Dome.MinDelay,
		Logger:           logger,
		LoggerProvider:   loggerProvider,
		MetricsCollector: dispatcherMetrics,
	})
	a.collectors = append(a.collectors,
		dispatcherMetrics.QueueLength, dispatcherMetrics.Executions, dispatcherMetrics.WaitDurations)

	cacheMetrics := cache.NewPrometheusMetricsWithOpts(cache.PrometheusMetricsOpts{
		Namespace: opts.MetricsNamespace,
		Name:      "dome_responses",
	})
	if a.Cache, err = cache.NewResponseCache(cache.ResponseCacheOpts{
		TTL:              cfg.Dome.CacheTTL,
		MaxEntries:       cfg.Dome.CacheMaxEntries,
		MetricsCollector: cacheMetrics,
	}); err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	a.collectors = append(a.collectors,
		cacheMetrics.EntriesAmount, cacheMetrics.HitsTotal, cacheMetrics.MissesTotal, cacheMetrics.EvictionsTotal)

	if a.Dome, err = dome.NewClientWithOpts(cfg.Dome.BaseURL, a.Dispatcher, dome.ClientOpts{
		Cache:          a.Cache,
		Logger:         logger,
		LoggerProvider: loggerProvider,
	}); err != nil {
		return nil, fmt.Errorf("create dome client: %w", err)
	}

	a.Arbitrage = arbitrage.NewCheckerWithOpts(a.Dome, cfg.Arbitrage, arbitrage.CheckerOpts{
		Logger:         logger,
		LoggerProvider: loggerProvider,
	})
	if a.Arbitrage.SimulatePrices() {
		logger.Info("arbitrage checks use simulated prices")
	}

	a.BotState = bot.NewState(cfg.Bot.DefaultStrategy)
	botMetrics := bot.NewPrometheusMetrics(opts.MetricsNamespace)
	momentum := bot.NewMomentum(a.Dome, a.BotState, cfg.Bot, logger, bot.MomentumOpts{MetricsCollector: botMetrics})
	botUnit := bot.NewMomentumUnit(momentum, service.PeriodicWorkerOpts{}, botMetrics)

	handler := api.NewHandler(api.Deps{
		Dome:       a.Dome,
		Quota:      a.Quota,
		Dispatcher: a.Dispatcher,
		Bot:        a.BotState,
		Arbitrage:  a.Arbitrage,
	}, cfg.API, logger)

	if a.HTTPServer, err = httpserver.New(cfg.Server, logger, httpserver.Opts{
		IndexHandler:       http.HandlerFunc(handler.Index),
		APIRoutes:          handler.Routes,
		HealthCheck:        makeHealthCheck(cfg.Dome.APIKey != ""),
		HTTPRequestMetrics: httpserver.HTTPRequestMetricsOpts{Namespace: opts.MetricsNamespace},
		CORS:               middleware.CORSOpts{AllowedOrigins: cfg.API.CORSAllowedOrigins},
	}); err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}

	units := []service.Unit{a.HTTPServer, botUnit}
	if cfg.ProfServer.Enabled {
		a.ProfServer = profserver.New(cfg.ProfServer, logger, profserver.Opts{State: a.state})
		units = append(units, a.ProfServer)
	}
	a.unit = service.NewCompositeUnit(units...)

	return a, nil
}

// Start starts all units of the application.
func (a *App) Start(fatalError chan<- error) {
	a.unit.Start(fatalError)
}

// Stop stops all units of the application. Calls that are already queued in the dispatcher still complete.
func (a *App) Stop(gracefully bool) error {
	return a.unit.Stop(gracefully)
}

// MustRegisterMetrics registers metrics of all components in the default Prometheus registry.
func (a *App) MustRegisterMetrics() {
	restapi.MustInitAndRegisterMetrics(a.namespace)
	prometheus.MustRegister(a.collectors...)
	a.unit.MustRegisterMetrics()
}

// UnregisterMetrics unregisters metrics of all components from the default Prometheus registry.
func (a *App) UnregisterMetrics() {
	a.unit.UnregisterMetrics()
	for _, c := range a.collectors {
		prometheus.Unregister(c)
	}
	restapi.UnregisterMetrics()
}

type appState struct {
	Dispatcher dispatcher.Stats `json:"dispatcher"`
	Cache      cacheState       `json:"cache"`
	RateLimit  quota.Snapshot   `json:"rateLimit"`
	Bot        bot.Status       `json:"bot"`
}

type cacheState struct {
	Entries int   `json:"entries"`
	TTLMs   int64 `json:"ttlMs"`
}

func (a *App) state() interface{} {
	return appState{
		Dispatcher: a.Dispatcher.Stats(),
		Cache:      cacheState{Entries: a.Cache.Len(), TTLMs: a.Cache.TTL().Milliseconds()},
		RateLimit:  a.Quota.Snapshot(),
		Bot:        a.BotState.Status(),
	}
}

func makeHealthCheck(apiKeyConfigured bool) httpserver.HealthCheck {
	return func(ctx context.Context) (httpserver.HealthCheckResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status := httpserver.HealthCheckStatusOK
		if !apiKeyConfigured {
			status = httpserver.HealthCheckStatusFail
		}
		return httpserver.HealthCheckResult{HealthComponentDome: status}, nil
	}
}
