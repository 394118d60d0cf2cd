/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package api

import (
	"net/http"
	"strings"

	"github.com/predictdash/predictdash/restapi"
)

// Arbitrage endpoint error messages.
const (
	ErrMessageMarketSlugRequired = "Market slug required"
	ErrMessageCheckArbitrage     = "Failed to check arbitrage"
	ErrMessageCheckBTC           = "Failed to check BTC arbitrage"
	ErrMessageCheckBTCIntra      = "Failed to check intra-Polymarket BTC arbitrage"
	ErrMessageScan               = "Failed to scan arbitrage opportunities"
)

// CheckArbitrage handles GET /api/arbitrage/check?market_slug=<slug>.
func (h *Handler) CheckArbitrage(rw http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("market_slug"))
	if slug == "" {
		restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(ErrMessageMarketSlugRequired), h.getLogger(r))
		return
	}
	result, err := h.deps.Arbitrage.CheckCrossPlatform(r.Context(), slug)
	if err != nil {
		h.respondError(rw, r, err, ErrMessageCheckArbitrage)
		return
	}
	restapi.RespondJSON(rw, result, h.getLogger(r))
}

// CheckBTCArbitrage handles GET /api/arbitrage/btc-check.
func (h *Handler) CheckBTCArbitrage(rw http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Arbitrage.CheckBTC(r.Context())
	if err != nil {
		h.respondError(rw, r, err, ErrMessageCheckBTC)
		return
	}
	restapi.RespondJSON(rw, report, h.getLogger(r))
}

// CheckBTCIntraArbitrage handles GET /api/arbitrage/btc-intra-check.
func (h *Handler) CheckBTCIntraArbitrage(rw http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Arbitrage.CheckBTCIntra(r.Context())
	if err != nil {
		h.respondError(rw, r, err, ErrMessageCheckBTCIntra)
		return
	}
	restapi.RespondJSON(rw, report, h.getLogger(r))
}

// ScanArbitrage handles GET /api/arbitrage/scan.
func (h *Handler) ScanArbitrage(rw http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Arbitrage.Scan(r.Context())
	if err != nil {
		h.respondError(rw, r, err, ErrMessageScan)
		return
	}
	restapi.RespondJSON(rw, report, h.getLogger(r))
}
