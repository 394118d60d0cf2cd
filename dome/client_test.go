/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dome

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/predictdash/predictdash/cache"
	"github.com/predictdash/predictdash/dispatcher"
	"github.com/predictdash/predictdash/httpclient"
	"github.com/predictdash/predictdash/log/logtest"
	"github.com/predictdash/predictdash/quota"
)

type upstreamMock struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  http.HandlerFunc
}

func (m *upstreamMock) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r)
	m.mu.Unlock()
	m.handler(rw, r)
}

func (m *upstreamMock) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *upstreamMock) lastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

type testEnv struct {
	client  *Client
	mock    *upstreamMock
	tracker *quota.Tracker
	clock   clockwork.FakeClock
	logs    *logtest.Recorder
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	mock := &upstreamMock{handler: handler}
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)

	tracker := quota.NewTracker()
	clientCfg := httpclient.NewDefaultConfig()
	clientCfg.Retries.Enabled = false
	httpClient, err := httpclient.NewWithOpts(clientCfg, httpclient.Opts{
		AuthProvider:   httpclient.StaticTokenProvider("test-api-key"),
		HeaderObserver: tracker,
	})
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	responseCache, err := cache.NewResponseCache(cache.ResponseCacheOpts{TTL: 30 * time.Second, Clock: clock})
	require.NoError(t, err)

	logs := logtest.NewRecorder()
	client, err := NewClientWithOpts(srv.URL+"/v1", dispatcher.NewWithOpts(httpClient, dispatcher.Opts{MinDelay: time.Millisecond}),
		ClientOpts{Cache: responseCache, Logger: logs})
	require.NoError(t, err)

	return &testEnv{client: client, mock: mock, tracker: tracker, clock: clock, logs: logs}
}

func respondJSON(rw http.ResponseWriter, status int, body string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_, _ = rw.Write([]byte(body))
}

func TestClient_Markets(t *testing.T) {
	env := newTestEnv(t, func(rw http.ResponseWriter, r *http.Request) {
		respondJSON(rw, http.StatusOK, `{"markets":[{"market_slug":"will-it-rain","question":"Will it rain?",`+
			`"side_a":{"id":"tok-a","label":"Yes"},"side_b":{"id":"tok-b","label":"No"},"volume_total":25000,"extra":"kept"}]}`)
	})
	ctx := context.Background()

	markets, err := env.client.Markets(ctx, url.Values{"limit": {"10"}, "order": {"volume"}})
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.Equal(t, "will-it-rain", markets[0].MarketSlug)
	require.Equal(t, "Will it rain?", markets[0].DisplayTitle())
	require.Equal(t, "tok-a", markets[0].SideATokenID())
	require.Equal(t, 25000.0, markets[0].VolumeTotal)

	req := env.mock.lastRequest()
	require.Equal(t, "/v1/polymarket/markets", req.URL.Path)
	require.Equal(t, "10", req.URL.Query().Get("limit"))
	require.Equal(t, "Bearer test-api-key", req.Header.Get("Authorization"))

	encoded, err := json.Marshal(markets[0])
	require.NoError(t, err)
	require.Contains(t, string(encoded), `"extra":"kept"`)

	// Same query with another parameter order is served from the cache.
	env.clock.Advance(5 * time.Second)
	_, err = env.client.Markets(ctx, url.Values{"order": {"volume"}, "limit": {"10"}})
	require.NoError(t, err)
	require.Equal(t, 1, env.mock.calls())
	hitEntry, found := env.logs.FindEntry("dome api response served from cache")
	require.True(t, found)
	require.Equal(t, RequestTypeMarkets, hitEntry.StringField("request_type"))
	ageField, found := hitEntry.FindField("duration")
	require.True(t, found)
	require.EqualValues(t, 5000, ageField.Int)

	// Another query is not.
	_, err = env.client.Markets(ctx, url.Values{"limit": {"20"}, "order": {"volume"}})
	require.NoError(t, err)
	require.Equal(t, 2, env.mock.calls())

	// Expired entries are fetched again.
	env.clock.Advance(26 * time.Second)
	_, err = env.client.Markets(ctx, url.Values{"limit": {"10"}, "order": {"volume"}})
	require.NoError(t, err)
	require.Equal(t, 3, env.mock.calls())
}

func TestClient_MarketPrice(t *testing.T) {
	env := newTestEnv(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/polymarket/market-price/unknown" {
			respondJSON(rw, http.StatusNotFound, `{"error":"token not found"}`)
			return
		}
		respondJSON(rw, http.StatusOK, `{"price":0.63,"at_time":1700000000}`)
	})
	ctx := context.Background()

	price, err := env.client.MarketPrice(ctx, "tok-a")
	require.NoError(t, err)
	require.NotNil(t, price.Price)
	require.Equal(t, 0.63, *price.Price)
	require.Equal(t, int64(1700000000), *price.AtTime)

	_, err = env.client.MarketPrice(ctx, "unknown")
	require.True(t, IsNotFound(err))
	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	require.JSONEq(t, `{"error":"token not found"}`, string(upstreamErr.Body))

	// Failed calls are not cached.
	_, err = env.client.MarketPrice(ctx, "unknown")
	require.True(t, IsNotFound(err))
	require.Equal(t, 3, env.mock.calls())
}

func TestClient_QuotaFromRateLimitedResponse(t *testing.T) {
	env := newTestEnv(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set(quota.HeaderLimit, "60")
		rw.Header().Set(quota.HeaderRemaining, "0")
		rw.Header().Set(quota.HeaderReset, "1700000000")
		respondJSON(rw, http.StatusTooManyRequests, `{"error":"rate limit exceeded"}`)
	})

	_, err := env.client.Markets(context.Background(), nil)
	require.True(t, IsStatus(err, http.StatusTooManyRequests))
	require.EqualError(t, err, "dome api /polymarket/markets responded with status 429")

	snapshot := env.tracker.Snapshot()
	require.NotNil(t, snapshot.ResetAt)
	require.Equal(t, int64(1700000000), *snapshot.ResetAt)
	require.Equal(t, int64(0), *snapshot.Remaining)
	require.Equal(t, int64(60), *snapshot.Limit)
}

func TestClient_MalformedResponseIsNotCached(t *testing.T) {
	env := newTestEnv(t, func(rw http.ResponseWriter, r *http.Request) {
		respondJSON(rw, http.StatusOK, `{"markets":[`)
	})
	for i := 0; i < 2; i++ {
		_, err := env.client.KalshiMarkets(context.Background(), nil)
		require.ErrorIs(t, err, ErrMalformedResponse)
	}
	require.Equal(t, 2, env.mock.calls())
}

func TestClient_Wallet(t *testing.T) {
	env := newTestEnv(t, func(rw http.ResponseWriter, r *http.Request) {
		respondJSON(rw, http.StatusOK, `{"eoa":"`+r.URL.Query().Get("eoa")+`","balance":12.5}`)
	})
	payload, err := env.client.Wallet(context.Background(), "0xabc")
	require.NoError(t, err)
	require.JSONEq(t, `{"eoa":"0xabc","balance":12.5}`, string(payload))
	require.Equal(t, "/v1/polymarket/wallet", env.mock.lastRequest().URL.Path)
}

func TestClient_MatchingSportsMarkets(t *testing.T) {
	env := newTestEnv(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get(ParamPolymarketSlug) != "nfl-game" {
			respondJSON(rw, http.StatusBadRequest, `{"error":"unexpected slug"}`)
			return
		}
		respondJSON(rw, http.StatusOK, `{"markets":{
			"zeta-event":[{"platform":"POLYMARKET","market_slug":"nfl-game"},{"platform":"KALSHI","event_ticker":"KXNFL","market_tickers":["KXNFL-A"]}],
			"alpha-event":[{"platform":"POLYMARKET","market_slug":"other"}]}}`)
	})

	mm, err := env.client.MatchingSportsMarkets(context.Background(), "nfl-game")
	require.NoError(t, err)
	require.Len(t, mm.Events, 2)

	first, ok := mm.First()
	require.True(t, ok)
	require.Equal(t, "zeta-event", first.Key)
	require.Equal(t, []string{PlatformPolymarket, PlatformKalshi}, first.PlatformNames())
	kalshi, ok := first.Find(PlatformKalshi)
	require.True(t, ok)
	require.Equal(t, "KXNFL", kalshi.EventTicker)
	require.Equal(t, []string{"KXNFL-A"}, kalshi.MarketTickers)
}

func TestMatchingMarkets_Empty(t *testing.T) {
	for _, body := range []string{`{}`, `{"markets":null}`, `{"markets":{}}`} {
		var mm MatchingMarkets
		require.NoError(t, json.Unmarshal([]byte(body), &mm), body)
		_, ok := mm.First()
		require.False(t, ok, body)
	}
	var mm MatchingMarkets
	require.Error(t, json.Unmarshal([]byte(`{"markets":[1,2]}`), &mm))
}

func TestClient_AllMarkets(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "array", body: `[{"market_slug":"a"},{"market_slug":"b"}]`},
		{name: "envelope", body: `{"markets":[{"market_slug":"a"},{"market_slug":"b"}]}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(rw http.ResponseWriter, r *http.Request) {
				respondJSON(rw, http.StatusOK, tt.body)
			})
			markets, err := env.client.AllMarkets(context.Background())
			require.NoError(t, err)
			require.Len(t, markets, 2)
			require.Equal(t, "b", markets[1].MarketSlug)
			require.Equal(t, "/v1/markets", env.mock.lastRequest().URL.Path)
		})
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient("api.domeapi.io/v1", dispatcher.New(http.DefaultClient))
	require.Error(t, err)
}
