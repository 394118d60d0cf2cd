/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/predictdash/predictdash/arbitrage"
	"github.com/predictdash/predictdash/bot"
	"github.com/predictdash/predictdash/dispatcher"
	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/quota"
	"github.com/predictdash/predictdash/restapi"
)

// IndexMessage is returned by the root endpoint.
const IndexMessage = "Prediction Markets API Backend"

// DomeClient is the subset of the Dome API client used by the market endpoints.
type DomeClient interface {
	Markets(ctx context.Context, params url.Values) ([]dome.Market, error)
	MarketPrice(ctx context.Context, tokenID string) (*dome.MarketPrice, error)
	Wallet(ctx context.Context, eoa string) (json.RawMessage, error)
}

// QuotaReader provides the last observed upstream quota.
type QuotaReader interface {
	Snapshot() quota.Snapshot
}

// DispatcherStatsProvider provides the outbound queue state.
type DispatcherStatsProvider interface {
	Stats() dispatcher.Stats
}

// ArbitrageChecker runs the arbitrage estimations.
type ArbitrageChecker interface {
	CheckCrossPlatform(ctx context.Context, marketSlug string) (*arbitrage.CheckResult, error)
	CheckBTC(ctx context.Context) (*arbitrage.BTCReport, error)
	CheckBTCIntra(ctx context.Context) (*arbitrage.BTCReport, error)
	Scan(ctx context.Context) (*arbitrage.ScanReport, error)
}

// Deps groups the process-wide components the handlers operate on.
type Deps struct {
	Dome       DomeClient
	Quota      QuotaReader
	Dispatcher DispatcherStatsProvider
	Bot        *bot.State
	Arbitrage  ArbitrageChecker
}

// Handler serves the dashboard API.
type Handler struct {
	deps   Deps
	cfg    *Config
	logger log.FieldLogger
}

// NewHandler creates a new Handler. Nil cfg means defaults, nil logger disables logging.
func NewHandler(deps Deps, cfg *Config, logger log.FieldLogger) *Handler {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Handler{deps: deps, cfg: cfg, logger: logger}
}

// Routes registers the API endpoints. The router is expected to be mounted at /api.
func (h *Handler) Routes(router chi.Router) {
	router.Get("/markets", h.GetMarkets)
	router.Get("/market-price/{tokenId}", h.GetMarketPrice)
	router.Get("/market-prices", h.GetMarketPrices)
	router.Get("/wallet", h.GetWallet)
	router.Get("/rate-limit", h.GetRateLimit)

	router.Route("/bot", func(router chi.Router) {
		router.Post("/start", h.StartBot)
		router.Post("/stop", h.StopBot)
		router.Get("/status", h.GetBotStatus)
	})

	router.Route("/arbitrage", func(router chi.Router) {
		router.Get("/check", h.CheckArbitrage)
		router.Get("/btc-check", h.CheckBTCArbitrage)
		router.Get("/btc-intra-check", h.CheckBTCIntraArbitrage)
		router.Get("/scan", h.ScanArbitrage)
	})
}

// Index handles GET /.
func (h *Handler) Index(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, map[string]string{"message": IndexMessage}, h.getLogger(r))
}

type rateLimitResponse struct {
	RateLimit  quota.Snapshot   `json:"rateLimit"`
	Dispatcher dispatcher.Stats `json:"dispatcher"`
}

// GetRateLimit handles GET /api/rate-limit.
func (h *Handler) GetRateLimit(rw http.ResponseWriter, r *http.Request) {
	resp := rateLimitResponse{RateLimit: h.deps.Quota.Snapshot()}
	if h.deps.Dispatcher != nil {
		resp.Dispatcher = h.deps.Dispatcher.Stats()
	}
	restapi.RespondJSON(rw, resp, h.getLogger(r))
}

func (h *Handler) getLogger(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
