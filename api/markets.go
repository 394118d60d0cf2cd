/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/quota"
	"github.com/predictdash/predictdash/restapi"
)

// Endpoint error messages.
const (
	ErrMessageFetchMarkets      = "Failed to fetch markets"
	ErrMessageFetchMarketPrice  = "Failed to fetch market price"
	ErrMessageFetchMarketPrices = "Failed to fetch market prices"
	ErrMessageFetchWallet       = "Failed to fetch wallet"
	ErrMessageEOARequired       = "eoa parameter is required"
	ErrMessageTokenIDsRequired  = "tokenIds parameter is required"
)

// defaultMarketsParams are sent to the upstream unless the caller overrides them.
var defaultMarketsParams = url.Values{
	"limit":     {"10"},
	"order":     {"volume"},
	"ascending": {"false"},
	"closed":    {"false"},
}

type marketsResponse struct {
	Markets   []dome.Market  `json:"markets"`
	RateLimit quota.Snapshot `json:"rateLimit"`
}

// GetMarkets handles GET /api/markets. Query parameters are forwarded to the upstream as filters.
func (h *Handler) GetMarkets(rw http.ResponseWriter, r *http.Request) {
	params := make(url.Values, len(defaultMarketsParams))
	for k, v := range defaultMarketsParams {
		params[k] = v
	}
	for k, v := range r.URL.Query() {
		params[k] = v
	}

	markets, err := h.deps.Dome.Markets(r.Context(), params)
	if err != nil {
		h.respondError(rw, r, err, ErrMessageFetchMarkets)
		return
	}
	if markets == nil {
		markets = []dome.Market{}
	}
	restapi.RespondJSON(rw, marketsResponse{Markets: markets, RateLimit: h.deps.Quota.Snapshot()}, h.getLogger(r))
}

type marketPriceResponse struct {
	Price     *float64       `json:"price"`
	AtTime    *int64         `json:"at_time"`
	RateLimit quota.Snapshot `json:"rateLimit"`
}

// GetMarketPrice handles GET /api/market-price/{tokenId}.
// An unknown token is not an error: the price is reported as null.
func (h *Handler) GetMarketPrice(rw http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenId")
	price, err := h.deps.Dome.MarketPrice(r.Context(), tokenID)
	if err != nil && !dome.IsNotFound(err) {
		h.respondError(rw, r, err, ErrMessageFetchMarketPrice)
		return
	}
	resp := marketPriceResponse{RateLimit: h.deps.Quota.Snapshot()}
	if price != nil {
		resp.Price = price.Price
		resp.AtTime = price.AtTime
	}
	restapi.RespondJSON(rw, resp, h.getLogger(r))
}

type marketPricesResponse struct {
	Prices       map[string]*float64 `json:"prices"`
	SuccessCount int                 `json:"successCount"`
	TotalCount   int                 `json:"totalCount"`
	RateLimit    quota.Snapshot      `json:"rateLimit"`
}

// GetMarketPrices handles GET /api/market-prices?tokenIds=a,b,c.
// Lookups are started one PriceStaggerDelay apart and run concurrently; the dispatcher still executes
// them one by one. Failed lookups are reported as null prices unless every lookup failed.
func (h *Handler) GetMarketPrices(rw http.ResponseWriter, r *http.Request) {
	logger := h.getLogger(r)

	tokenIDs := parseTokenIDs(r.URL.Query().Get("tokenIds"))
	if len(tokenIDs) == 0 {
		restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(ErrMessageTokenIDsRequired), logger)
		return
	}
	if len(tokenIDs) > h.cfg.MaxBatchTokens {
		apiErr := restapi.NewError(fmt.Sprintf("at most %d tokenIds are allowed", h.cfg.MaxBatchTokens))
		restapi.RespondError(rw, http.StatusBadRequest, apiErr, logger)
		return
	}

	prices, successCount, firstErr := h.fetchPrices(r.Context(), logger, tokenIDs)
	if successCount == 0 && firstErr != nil {
		h.respondError(rw, r, firstErr, ErrMessageFetchMarketPrices)
		return
	}
	restapi.RespondJSON(rw, marketPricesResponse{
		Prices:       prices,
		SuccessCount: successCount,
		TotalCount:   len(tokenIDs),
		RateLimit:    h.deps.Quota.Snapshot(),
	}, logger)
}

func (h *Handler) fetchPrices(
	ctx context.Context, logger log.FieldLogger, tokenIDs []string,
) (prices map[string]*float64, successCount int, firstErr error) {
	prices = make(map[string]*float64, len(tokenIDs))
	for _, id := range tokenIDs {
		prices[id] = nil
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	stagger := rate.NewLimiter(rate.Every(h.cfg.PriceStaggerDelay), 1)
	for _, tokenID := range tokenIDs {
		if err := stagger.Wait(ctx); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(tokenID string) {
			defer wg.Done()
			price, err := h.deps.Dome.MarketPrice(ctx, tokenID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				prices[tokenID] = price.Price
				if price.Price != nil {
					successCount++
				}
			case dome.IsNotFound(err):
			default:
				logger.Warn("failed to fetch market price", log.String("token_id", tokenID), log.Error(err))
				if firstErr == nil {
					firstErr = err
				}
			}
		}(tokenID)
	}
	wg.Wait()
	return prices, successCount, firstErr
}

// parseTokenIDs splits a comma-separated list, dropping blanks and duplicates.
func parseTokenIDs(raw string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// GetWallet handles GET /api/wallet?eoa=<address>. The upstream payload is returned as is.
func (h *Handler) GetWallet(rw http.ResponseWriter, r *http.Request) {
	eoa := strings.TrimSpace(r.URL.Query().Get("eoa"))
	if eoa == "" {
		restapi.RespondError(rw, http.StatusBadRequest, restapi.NewError(ErrMessageEOARequired), h.getLogger(r))
		return
	}
	wallet, err := h.deps.Dome.Wallet(r.Context(), eoa)
	if err != nil {
		h.respondError(rw, r, err, ErrMessageFetchWallet)
		return
	}
	restapi.RespondJSON(rw, wallet, h.getLogger(r))
}
