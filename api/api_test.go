/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/predictdash/predictdash/arbitrage"
	"github.com/predictdash/predictdash/bot"
	"github.com/predictdash/predictdash/dispatcher"
	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log/logtest"
	"github.com/predictdash/predictdash/quota"
	"github.com/predictdash/predictdash/testutil"
)

type fakeDome struct {
	mu           sync.Mutex
	marketsCalls []url.Values
	priceCalls   []string

	markets    []dome.Market
	marketsErr error
	prices     map[string]*dome.MarketPrice
	priceErrs  map[string]error
	wallet     json.RawMessage
	walletErr  error
}

func (f *fakeDome) Markets(_ context.Context, params url.Values) ([]dome.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketsCalls = append(f.marketsCalls, params)
	return f.markets, f.marketsErr
}

func (f *fakeDome) MarketPrice(_ context.Context, tokenID string) (*dome.MarketPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls = append(f.priceCalls, tokenID)
	if err := f.priceErrs[tokenID]; err != nil {
		return nil, err
	}
	if price, ok := f.prices[tokenID]; ok {
		return price, nil
	}
	return nil, &dome.UpstreamError{Path: dome.PathPolymarketPrice + tokenID, StatusCode: http.StatusNotFound}
}

func (f *fakeDome) Wallet(_ context.Context, _ string) (json.RawMessage, error) {
	return f.wallet, f.walletErr
}

type fakeChecker struct {
	check    *arbitrage.CheckResult
	btc      *arbitrage.BTCReport
	btcIntra *arbitrage.BTCReport
	scan     *arbitrage.ScanReport
	err      error
	slugs    []string
}

func (f *fakeChecker) CheckCrossPlatform(_ context.Context, marketSlug string) (*arbitrage.CheckResult, error) {
	f.slugs = append(f.slugs, marketSlug)
	return f.check, f.err
}

func (f *fakeChecker) CheckBTC(context.Context) (*arbitrage.BTCReport, error) {
	return f.btc, f.err
}

func (f *fakeChecker) CheckBTCIntra(context.Context) (*arbitrage.BTCReport, error) {
	return f.btcIntra, f.err
}

func (f *fakeChecker) Scan(context.Context) (*arbitrage.ScanReport, error) {
	return f.scan, f.err
}

type fakeStats struct {
	stats dispatcher.Stats
}

func (f fakeStats) Stats() dispatcher.Stats {
	return f.stats
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type testEnv struct {
	dome    *fakeDome
	checker *fakeChecker
	tracker *quota.Tracker
	bot     *bot.State
	logger  *logtest.Recorder
	router  chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		dome:    &fakeDome{},
		checker: &fakeChecker{},
		tracker: quota.NewTracker(),
		bot:     bot.NewState(bot.StrategyMomentum),
		logger:  logtest.NewRecorder(),
	}
	cfg := NewDefaultConfig()
	cfg.PriceStaggerDelay = 0
	cfg.MaxBatchTokens = 3
	handler := NewHandler(Deps{
		Dome:       env.dome,
		Quota:      env.tracker,
		Dispatcher: fakeStats{dispatcher.Stats{QueueLength: 2, Executions: 7, MinDelayMs: 1100}},
		Bot:        env.bot,
		Arbitrage:  env.checker,
	}, cfg, env.logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID())
	router.Get("/", handler.Index)
	router.Route("/api", handler.Routes)
	env.router = router
	return env
}

func (env *testEnv) do(method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(middleware.HeaderRequestID, "req-1")
	resp := httptest.NewRecorder()
	env.router.ServeHTTP(resp, req)
	return resp
}

func (env *testEnv) setQuota(limit, remaining, reset string) {
	h := http.Header{}
	h.Set(quota.HeaderLimit, limit)
	h.Set(quota.HeaderRemaining, remaining)
	h.Set(quota.HeaderReset, reset)
	env.tracker.UpdateFromHeader(h)
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func unmarshalMarkets(t *testing.T, data string) []dome.Market {
	t.Helper()
	var markets []dome.Market
	require.NoError(t, json.Unmarshal([]byte(data), &markets))
	return markets
}

func ptr[T any](v T) *T {
	return &v
}

func TestHandler_Index(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, IndexMessage, decodeBody(t, resp)["message"])
}

func TestHandler_GetMarkets(t *testing.T) {
	t.Run("default filters", func(t *testing.T) {
		env := newTestEnv(t)
		env.dome.markets = unmarshalMarkets(t, `[{"market_slug":"nfl-a","title":"A"},{"market_slug":"nfl-b","title":"B"}]`)
		env.setQuota("100", "99", "1700000000")

		resp := env.do(http.MethodGet, "/api/markets", "")
		require.Equal(t, http.StatusOK, resp.Code)

		require.Len(t, env.dome.marketsCalls, 1)
		require.Equal(t, url.Values{
			"limit":     {"10"},
			"order":     {"volume"},
			"ascending": {"false"},
			"closed":    {"false"},
		}, env.dome.marketsCalls[0])

		body := decodeBody(t, resp)
		markets := body["markets"].([]interface{})
		require.Len(t, markets, 2)
		require.Equal(t, "nfl-a", markets[0].(map[string]interface{})["market_slug"])
		require.Equal(t, map[string]interface{}{
			"limit": float64(100), "remaining": float64(99), "resetAt": float64(1700000000),
		}, body["rateLimit"])
	})

	t.Run("query overrides and extra filters", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(http.MethodGet, "/api/markets?limit=3&tags=Bitcoin", "")
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, "3", env.dome.marketsCalls[0].Get("limit"))
		require.Equal(t, "Bitcoin", env.dome.marketsCalls[0].Get("tags"))
		require.Equal(t, "volume", env.dome.marketsCalls[0].Get("order"))

		body := decodeBody(t, resp)
		require.Equal(t, []interface{}{}, body["markets"])
		require.Equal(t, map[string]interface{}{"limit": nil, "remaining": nil, "resetAt": nil}, body["rateLimit"])
	})
}

func TestHandler_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "unauthorized is passed through",
			err:        &dome.UpstreamError{StatusCode: http.StatusUnauthorized, Body: []byte(`{"message":"invalid key"}`)},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    ErrMessageFetchMarkets,
			check: func(t *testing.T, body map[string]interface{}) {
				require.Equal(t, map[string]interface{}{"message": "invalid key"}, body["details"])
			},
		},
		{
			name:       "forbidden is passed through",
			err:        &dome.UpstreamError{StatusCode: http.StatusForbidden, Body: []byte("denied")},
			wantStatus: http.StatusForbidden,
			wantMsg:    ErrMessageFetchMarkets,
			check: func(t *testing.T, body map[string]interface{}) {
				require.Equal(t, "denied", body["details"])
			},
		},
		{
			name:       "quota exhausted carries snapshot",
			err:        fmt.Errorf("get markets: %w", &dome.UpstreamError{StatusCode: http.StatusTooManyRequests}),
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    ErrMessageRateLimited,
			check: func(t *testing.T, body map[string]interface{}) {
				require.Equal(t, float64(1700000000), body["rateLimit"].(map[string]interface{})["resetAt"])
				require.Equal(t, float64(0), body["rateLimit"].(map[string]interface{})["remaining"])
			},
		},
		{
			name:       "not found",
			err:        &dome.UpstreamError{StatusCode: http.StatusNotFound},
			wantStatus: http.StatusNotFound,
			wantMsg:    ErrMessageFetchMarkets,
		},
		{
			name:       "upstream server error",
			err:        &dome.UpstreamError{StatusCode: http.StatusBadGateway},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    ErrMessageFetchMarkets,
			check: func(t *testing.T, body map[string]interface{}) {
				require.Equal(t, "req-1", body["requestId"])
			},
		},
		{
			name: "transport timeout",
			err: fmt.Errorf("make upstream request: %w",
				&url.Error{Op: "Get", URL: "https://api.domeapi.io/v1/polymarket/markets", Err: timeoutError{}}),
			wantStatus: http.StatusGatewayTimeout,
			wantMsg:    ErrMessageUpstreamTimeout,
		},
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("wait: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantMsg:    ErrMessageUpstreamTimeout,
		},
		{
			name: "connection refused",
			err: fmt.Errorf("make upstream request: %w", &url.Error{
				Op: "Get", URL: "https://api.domeapi.io/v1/polymarket/markets",
				Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			}),
			wantStatus: http.StatusServiceUnavailable,
			wantMsg:    ErrMessageUpstreamUnavailable,
		},
		{
			name:       "malformed response",
			err:        fmt.Errorf("%s: %w", dome.PathPolymarketMarkets, dome.ErrMalformedResponse),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    ErrMessageFetchMarkets,
			check: func(t *testing.T, body map[string]interface{}) {
				require.Equal(t, "req-1", body["requestId"])
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.setQuota("100", "0", "1700000000")
			env.dome.marketsErr = tt.err

			resp := env.do(http.MethodGet, "/api/markets", "")
			body := testutil.RequireErrorInRecorder(t, resp, tt.wantStatus, tt.wantMsg)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}

	t.Run("client closed request", func(t *testing.T) {
		env := newTestEnv(t)
		env.dome.marketsErr = context.Canceled

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/api/markets", nil).WithContext(ctx)
		resp := httptest.NewRecorder()
		env.router.ServeHTTP(resp, req)
		require.Equal(t, statusClientClosedRequest, resp.Code)
		require.Empty(t, resp.Body.Bytes())
	})
}

func TestHandler_GetMarketPrice(t *testing.T) {
	t.Run("price found", func(t *testing.T) {
		env := newTestEnv(t)
		env.dome.prices = map[string]*dome.MarketPrice{"tok1": {Price: ptr(0.42), AtTime: ptr(int64(1700000100))}}

		resp := env.do(http.MethodGet, "/api/market-price/tok1", "")
		require.Equal(t, http.StatusOK, resp.Code)
		body := decodeBody(t, resp)
		require.Equal(t, 0.42, body["price"])
		require.Equal(t, float64(1700000100), body["at_time"])
		require.Contains(t, body, "rateLimit")
		require.Equal(t, []string{"tok1"}, env.dome.priceCalls)
	})

	t.Run("unknown token is a null price", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(http.MethodGet, "/api/market-price/missing", "")
		require.Equal(t, http.StatusOK, resp.Code)
		body := decodeBody(t, resp)
		require.Contains(t, body, "price")
		require.Nil(t, body["price"])
		require.Nil(t, body["at_time"])
	})

	t.Run("upstream failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.dome.priceErrs = map[string]error{"tok1": &dome.UpstreamError{StatusCode: http.StatusInternalServerError}}
		resp := env.do(http.MethodGet, "/api/market-price/tok1", "")
		testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, ErrMessageFetchMarketPrice)
	})
}

func TestHandler_GetMarketPrices(t *testing.T) {
	t.Run("mixed outcomes", func(t *testing.T) {
		env := newTestEnv(t)
		env.dome.prices = map[string]*dome.MarketPrice{"a": {Price: ptr(0.3)}, "b": {Price: ptr(0.7)}}
		env.dome.priceErrs = map[string]error{"c": &dome.UpstreamError{StatusCode: http.StatusInternalServerError}}

		resp := env.do(http.MethodGet, "/api/market-prices?tokenIds=a,%20b,,c,a", "")
		require.Equal(t, http.StatusOK, resp.Code)
		body := decodeBody(t, resp)
		require.Equal(t, map[string]interface{}{"a": 0.3, "b": 0.7, "c": nil}, body["prices"])
		require.Equal(t, float64(2), body["successCount"])
		require.Equal(t, float64(3), body["totalCount"])
		require.Contains(t, body, "rateLimit")
		require.ElementsMatch(t, []string{"a", "b", "c"}, env.dome.priceCalls)

		_, found := env.logger.FindEntry("failed to fetch market price")
		require.True(t, found)
	})

	t.Run("unknown tokens are not failures", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(http.MethodGet, "/api/market-prices?tokenIds=x,y", "")
		require.Equal(t, http.StatusOK, resp.Code)
		body := decodeBody(t, resp)
		require.Equal(t, map[string]interface{}{"x": nil, "y": nil}, body["prices"])
		require.Equal(t, float64(0), body["successCount"])
	})

	t.Run("every lookup rate limited", func(t *testing.T) {
		env := newTestEnv(t)
		env.setQuota("100", "0", "1700000000")
		limited := &dome.UpstreamError{StatusCode: http.StatusTooManyRequests}
		env.dome.priceErrs = map[string]error{"a": limited, "b": limited}
		resp := env.do(http.MethodGet, "/api/market-prices?tokenIds=a,b", "")
		body := testutil.RequireErrorInRecorder(t, resp, http.StatusTooManyRequests, ErrMessageRateLimited)
		require.NotNil(t, body["rateLimit"])
	})

	t.Run("missing tokenIds", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(http.MethodGet, "/api/market-prices?tokenIds=,", "")
		testutil.RequireErrorInRecorder(t, resp, http.StatusBadRequest, ErrMessageTokenIDsRequired)
		require.Empty(t, env.dome.priceCalls)
	})

	t.Run("too many tokenIds", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(http.MethodGet, "/api/market-prices?tokenIds=a,b,c,d", "")
		testutil.RequireErrorInRecorder(t, resp, http.StatusBadRequest, "at most 3 tokenIds are allowed")
	})
}

func TestHandler_GetWallet(t *testing.T) {
	t.Run("eoa required", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(http.MethodGet, "/api/wallet", "")
		testutil.RequireErrorInRecorder(t, resp, http.StatusBadRequest, ErrMessageEOARequired)
	})

	t.Run("payload passed through", func(t *testing.T) {
		env := newTestEnv(t)
		env.dome.wallet = json.RawMessage(`{"eoa":"0xabc","proxy":"0xdef"}`)
		resp := env.do(http.MethodGet, "/api/wallet?eoa=0xabc", "")
		require.Equal(t, http.StatusOK, resp.Code)
		require.JSONEq(t, `{"eoa":"0xabc","proxy":"0xdef"}`, resp.Body.String())
	})

	t.Run("upstream failure", func(t *testing.T) {
		env := newTestEnv(t)
		env.dome.walletErr = errors.New("boom")
		resp := env.do(http.MethodGet, "/api/wallet?eoa=0xabc", "")
		body := testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, ErrMessageFetchWallet)
		require.Equal(t, "req-1", body["requestId"])
	})
}

func TestHandler_Bot(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/api/bot/status", "")
	require.JSONEq(t, `{"running":false,"strategy":"momentum"}`, resp.Body.String())

	resp = env.do(http.MethodPost, "/api/bot/start", `{"strategy":"meanReversion"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"message":"Bot started","strategy":"meanReversion"}`, resp.Body.String())
	require.Equal(t, bot.Status{Running: true, Strategy: "meanReversion"}, env.bot.Status())

	resp = env.do(http.MethodPost, "/api/bot/stop", "")
	require.JSONEq(t, `{"message":"Bot stopped"}`, resp.Body.String())
	require.False(t, env.bot.Running())

	resp = env.do(http.MethodPost, "/api/bot/start", "")
	require.JSONEq(t, `{"message":"Bot started","strategy":"momentum"}`, resp.Body.String())

	resp = env.do(http.MethodGet, "/api/bot/status", "")
	require.JSONEq(t, `{"running":true,"strategy":"momentum"}`, resp.Body.String())

	resp = env.do(http.MethodPost, "/api/bot/start", `{"strategy":`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	_, found := env.logger.FindEntry("auto-bot started")
	require.True(t, found)
}

func TestHandler_Arbitrage(t *testing.T) {
	t.Run("market slug required", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.do(http.MethodGet, "/api/arbitrage/check", "")
		testutil.RequireErrorInRecorder(t, resp, http.StatusBadRequest, ErrMessageMarketSlugRequired)
	})

	t.Run("check", func(t *testing.T) {
		env := newTestEnv(t)
		env.checker.check = &arbitrage.CheckResult{Exists: false, Market: "nfl-x", Message: arbitrage.MessageNoMatch}
		resp := env.do(http.MethodGet, "/api/arbitrage/check?market_slug=nfl-x", "")
		require.Equal(t, http.StatusOK, resp.Code)
		body := decodeBody(t, resp)
		require.Equal(t, false, body["exists"])
		require.Equal(t, "nfl-x", body["market"])
		require.Equal(t, []string{"nfl-x"}, env.checker.slugs)
	})

	t.Run("check fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.checker.err = errors.New("boom")
		resp := env.do(http.MethodGet, "/api/arbitrage/check?market_slug=nfl-x", "")
		body := testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, ErrMessageCheckArbitrage)
		require.Equal(t, "req-1", body["requestId"])
	})

	t.Run("btc reports", func(t *testing.T) {
		env := newTestEnv(t)
		env.checker.btc = &arbitrage.BTCReport{Success: true, Arbs: []arbitrage.BTCOpportunity{}, Note: "cross"}
		env.checker.btcIntra = &arbitrage.BTCReport{Success: true, Arbs: []arbitrage.BTCOpportunity{}, Note: "intra"}

		resp := env.do(http.MethodGet, "/api/arbitrage/btc-check", "")
		require.Equal(t, "cross", decodeBody(t, resp)["note"])
		resp = env.do(http.MethodGet, "/api/arbitrage/btc-intra-check", "")
		require.Equal(t, "intra", decodeBody(t, resp)["note"])
	})

	t.Run("scan", func(t *testing.T) {
		env := newTestEnv(t)
		env.checker.scan = &arbitrage.ScanReport{Scanned: 10, Results: []arbitrage.ScanResult{}}
		resp := env.do(http.MethodGet, "/api/arbitrage/scan", "")
		require.Equal(t, float64(10), decodeBody(t, resp)["scanned"])
	})

	t.Run("scan rate limited", func(t *testing.T) {
		env := newTestEnv(t)
		env.checker.err = &dome.UpstreamError{StatusCode: http.StatusTooManyRequests}
		resp := env.do(http.MethodGet, "/api/arbitrage/scan", "")
		testutil.RequireErrorInRecorder(t, resp, http.StatusTooManyRequests, ErrMessageRateLimited)
	})
}

func TestHandler_GetRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.setQuota("100", "42", "1700000000")
	resp := env.do(http.MethodGet, "/api/rate-limit", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{
		"rateLimit": {"limit": 100, "remaining": 42, "resetAt": 1700000000},
		"dispatcher": {"queueLength": 2, "inFlight": false, "executions": 7, "minDelayMs": 1100}
	}`, resp.Body.String())
}

func TestParseTokenIDs(t *testing.T) {
	require.Nil(t, parseTokenIDs(""))
	require.Equal(t, []string{"a", "b"}, parseTokenIDs(" a ,b,a,, "))
}
