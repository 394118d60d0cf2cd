/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dome

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/predictdash/predictdash/cache"
	"github.com/predictdash/predictdash/dispatcher"
	"github.com/predictdash/predictdash/httpclient"
	"github.com/predictdash/predictdash/log"
)

// Request types used as log and metrics labels of upstream calls.
const (
	RequestTypeMarkets         = "markets"
	RequestTypeMarketPrice     = "market_price"
	RequestTypeWallet          = "wallet"
	RequestTypeMatchingMarkets = "matching_markets"
	RequestTypeKalshiMarkets   = "kalshi_markets"
	RequestTypeAllMarkets      = "all_markets"
)

// Upstream endpoints.
const (
	PathPolymarketMarkets = "/polymarket/markets"
	PathPolymarketPrice   = "/polymarket/market-price/"
	PathPolymarketWallet  = "/polymarket/wallet"
	PathMatchingSports    = "/matching-markets/sports"
	PathKalshiMarkets     = "/kalshi/markets"
	PathAllMarkets        = "/markets"
	ParamPolymarketSlug   = "polymarket_market_slug"
	ParamEOA              = "eoa"
)

const contentTypeJSON = "application/json"

// Enqueuer schedules an upstream call. *dispatcher.Dispatcher implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, req dispatcher.Request) *dispatcher.Pending
}

// ClientOpts represents options for the Client.
type ClientOpts struct {
	// Cache keeps successful responses. Caching is disabled if nil.
	Cache *cache.ResponseCache

	// Logger is used when LoggerProvider is nil or returns nil.
	Logger log.FieldLogger

	// LoggerProvider returns a request-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger
}

// Client calls the Dome API through the dispatcher.
type Client struct {
	baseURL  string
	enqueuer Enqueuer
	cache    *cache.ResponseCache
	logger   log.FieldLogger
	loggerFn func(ctx context.Context) log.FieldLogger
}

// NewClient creates a new Client without response caching.
func NewClient(baseURL string, enqueuer Enqueuer) (*Client, error) {
	return NewClientWithOpts(baseURL, enqueuer, ClientOpts{})
}

// NewClientWithOpts creates a new Client.
func NewClientWithOpts(baseURL string, enqueuer Enqueuer, opts ClientOpts) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		enqueuer: enqueuer,
		cache:    opts.Cache,
		logger:   opts.Logger,
		loggerFn: opts.LoggerProvider,
	}, nil
}

// Markets returns Polymarket markets matching the filters.
func (c *Client) Markets(ctx context.Context, params url.Values) ([]Market, error) {
	var resp struct {
		Markets []Market `json:"markets"`
	}
	if err := c.getJSON(ctx, RequestTypeMarkets, PathPolymarketMarkets, params, &resp); err != nil {
		return nil, err
	}
	return resp.Markets, nil
}

// MarketPrice returns the current price of a Polymarket token.
// A token unknown to the upstream results in an error for which IsNotFound is true.
func (c *Client) MarketPrice(ctx context.Context, tokenID string) (*MarketPrice, error) {
	var price MarketPrice
	path := PathPolymarketPrice + url.PathEscape(tokenID)
	if err := c.getJSON(ctx, RequestTypeMarketPrice, path, nil, &price); err != nil {
		return nil, err
	}
	return &price, nil
}

// Wallet returns the wallet payload for the externally owned account address as is.
func (c *Client) Wallet(ctx context.Context, eoa string) (json.RawMessage, error) {
	return c.cachedGet(ctx, RequestTypeWallet, PathPolymarketWallet, url.Values{ParamEOA: {eoa}})
}

// MatchingSportsMarkets returns markets of other platforms matched to the Polymarket market.
func (c *Client) MatchingSportsMarkets(ctx context.Context, marketSlug string) (*MatchingMarkets, error) {
	var mm MatchingMarkets
	params := url.Values{ParamPolymarketSlug: {marketSlug}}
	if err := c.getJSON(ctx, RequestTypeMatchingMarkets, PathMatchingSports, params, &mm); err != nil {
		return nil, err
	}
	return &mm, nil
}

// KalshiMarkets returns Kalshi markets matching the filters.
func (c *Client) KalshiMarkets(ctx context.Context, params url.Values) ([]KalshiMarket, error) {
	var resp struct {
		Markets []KalshiMarket `json:"markets"`
	}
	if err := c.getJSON(ctx, RequestTypeKalshiMarkets, PathKalshiMarkets, params, &resp); err != nil {
		return nil, err
	}
	return resp.Markets, nil
}

// AllMarkets returns the cross-platform market listing.
// Both a bare array and a {"markets": [...]} envelope are accepted.
func (c *Client) AllMarkets(ctx context.Context) ([]Market, error) {
	payload, err := c.cachedGet(ctx, RequestTypeAllMarkets, PathAllMarkets, nil)
	if err != nil {
		return nil, err
	}
	var markets []Market
	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(payload, &markets)
	} else {
		var resp struct {
			Markets []Market `json:"markets"`
		}
		err = json.Unmarshal(payload, &resp)
		markets = resp.Markets
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", PathAllMarkets, err)
	}
	return markets, nil
}

func (c *Client) getJSON(ctx context.Context, reqType, path string, params url.Values, dst interface{}) error {
	payload, err := c.cachedGet(ctx, reqType, path, params)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// cachedGet serves the payload from the cache or, on miss, fetches it and caches it if the call succeeded.
func (c *Client) cachedGet(ctx context.Context, reqType, path string, params url.Values) (json.RawMessage, error) {
	if c.cache == nil {
		return c.rateLimitedGet(ctx, reqType, path, params)
	}
	fingerprint := cache.Fingerprint(path, params)
	if payload, age, ok := c.cache.GetWithAge(fingerprint); ok {
		c.getLogger(ctx).Debug("dome api response served from cache",
			log.String("request_type", reqType), log.String("fingerprint", fingerprint),
			log.DurationIn(age, time.Millisecond))
		return payload, nil
	}
	payload, err := c.rateLimitedGet(ctx, reqType, path, params)
	if err != nil {
		return nil, err
	}
	c.cache.Put(fingerprint, payload)
	return payload, nil
}

// rateLimitedGet enqueues a GET call on the dispatcher and waits for its outcome.
// Non-2xx responses are returned as *UpstreamError.
func (c *Client) rateLimitedGet(ctx context.Context, reqType, path string, params url.Values) (json.RawMessage, error) {
	reqURL := c.baseURL + path
	if len(params) != 0 {
		reqURL += "?" + params.Encode()
	}
	ctx = httpclient.NewContextWithRequestType(ctx, reqType)
	pending := c.enqueuer.Enqueue(ctx, dispatcher.Request{
		Method: http.MethodGet,
		URL:    reqURL,
		Header: http.Header{"Accept": {contentTypeJSON}},
		Type:   reqType,
	})
	resp, err := pending.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &UpstreamError{Path: path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("%s: %w", path, ErrMalformedResponse)
	}
	return resp.Body, nil
}

func (c *Client) getLogger(ctx context.Context) log.FieldLogger {
	if c.loggerFn != nil {
		if l := c.loggerFn(ctx); l != nil {
			return l
		}
	}
	return c.logger
}
