/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predictdash/predictdash/dome"
)

// ErrNoPrice is returned by a PriceSource when a price is not available for the market.
var ErrNoPrice = errors.New("price is not available")

var (
	minPrice  = decimal.RequireFromString("0.01")
	maxPrice  = decimal.RequireFromString("0.99")
	basePrice = decimal.RequireFromString("0.5")
	maxSpread = decimal.RequireFromString("0.1")
	one       = decimal.NewFromInt(1)
	hundred   = decimal.NewFromInt(100)
)

// PriceRequest identifies the markets to price.
type PriceRequest struct {
	PolymarketTokenID string
	Kalshi            *dome.KalshiMarket
}

// PriceSource returns "Yes" prices (fractions of $1) of the same event on both platforms.
type PriceSource interface {
	YesPrices(ctx context.Context, req PriceRequest) (polyYes, kalshiYes decimal.Decimal, err error)
}

// Random is a source of pseudo-random numbers.
type Random interface {
	Float64() float64
	Intn(n int) int
}

type lockedRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a Random that is safe for concurrent use.
func NewRandom(seed int64) Random {
	return &lockedRandom{rnd: rand.New(rand.NewSource(seed))} //nolint:gosec // prices are illustrative
}

func (r *lockedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *lockedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// SimulatedPrices draws each platform price independently from 0.5 ± 0.05, clamped to [0.01, 0.99].
type SimulatedPrices struct {
	rnd Random
}

// NewSimulatedPrices creates a new SimulatedPrices. A time-seeded Random is used if rnd is nil.
func NewSimulatedPrices(rnd Random) *SimulatedPrices {
	if rnd == nil {
		rnd = NewRandom(time.Now().UnixNano())
	}
	return &SimulatedPrices{rnd: rnd}
}

// YesPrices implements PriceSource.
func (s *SimulatedPrices) YesPrices(_ context.Context, _ PriceRequest) (polyYes, kalshiYes decimal.Decimal, err error) {
	return s.next(), s.next(), nil
}

func (s *SimulatedPrices) next() decimal.Decimal {
	spread := decimal.NewFromFloat(s.rnd.Float64() - 0.5).Mul(maxSpread)
	return clampPrice(basePrice.Add(spread))
}

func clampPrice(p decimal.Decimal) decimal.Decimal {
	return decimal.Max(minPrice, decimal.Min(maxPrice, p))
}

// PriceClient fetches the current price of a Polymarket token. *dome.Client implements it.
type PriceClient interface {
	MarketPrice(ctx context.Context, tokenID string) (*dome.MarketPrice, error)
}

// LivePrices takes the Polymarket price from the upstream price endpoint
// and the Kalshi price from the market's last traded price (in cents).
type LivePrices struct {
	client PriceClient
}

// NewLivePrices creates a new LivePrices.
func NewLivePrices(client PriceClient) *LivePrices {
	return &LivePrices{client: client}
}

// YesPrices implements PriceSource.
func (l *LivePrices) YesPrices(ctx context.Context, req PriceRequest) (polyYes, kalshiYes decimal.Decimal, err error) {
	if req.PolymarketTokenID == "" || req.Kalshi == nil || req.Kalshi.LastPrice <= 0 {
		return decimal.Zero, decimal.Zero, ErrNoPrice
	}
	price, err := l.client.MarketPrice(ctx, req.PolymarketTokenID)
	if err != nil {
		if dome.IsNotFound(err) {
			return decimal.Zero, decimal.Zero, ErrNoPrice
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("get polymarket price: %w", err)
	}
	if price.Price == nil {
		return decimal.Zero, decimal.Zero, ErrNoPrice
	}
	polyYes = clampPrice(decimal.NewFromFloat(*price.Price))
	kalshiYes = clampPrice(decimal.NewFromFloat(req.Kalshi.LastPrice).Div(hundred))
	return polyYes, kalshiYes, nil
}
