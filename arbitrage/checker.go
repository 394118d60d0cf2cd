/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package arbitrage

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/log"
)

// MarketData provides upstream market data. *dome.Client implements it.
type MarketData interface {
	PriceClient
	Markets(ctx context.Context, params url.Values) ([]dome.Market, error)
	AllMarkets(ctx context.Context) ([]dome.Market, error)
	KalshiMarkets(ctx context.Context, params url.Values) ([]dome.KalshiMarket, error)
	MatchingSportsMarkets(ctx context.Context, marketSlug string) (*dome.MatchingMarkets, error)
}

// CheckerOpts represents options for the Checker.
type CheckerOpts struct {
	// Random drives simulated prices and placeholder volumes. Time-seeded if nil.
	Random Random

	// Clock is used for timestamps. Real clock if nil.
	Clock clockwork.Clock

	// Logger is used when LoggerProvider is nil or returns nil.
	Logger log.FieldLogger

	// LoggerProvider returns a request-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger
}

// Checker runs arbitrage checks against upstream market data.
type Checker struct {
	data      MarketData
	cfg       Config
	rnd       Random
	simulated *SimulatedPrices
	live      *LivePrices
	clock     clockwork.Clock
	logger    log.FieldLogger
	loggerFn  func(ctx context.Context) log.FieldLogger
}

// NewChecker creates a new Checker with default options.
func NewChecker(data MarketData, cfg *Config) *Checker {
	return NewCheckerWithOpts(data, cfg, CheckerOpts{})
}

// NewCheckerWithOpts creates a new Checker.
func NewCheckerWithOpts(data MarketData, cfg *Config, opts CheckerOpts) *Checker {
	if opts.Random == nil {
		opts.Random = NewRandom(time.Now().UnixNano())
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Checker{
		data:      data,
		cfg:       *cfg,
		rnd:       opts.Random,
		simulated: NewSimulatedPrices(opts.Random),
		live:      NewLivePrices(data),
		clock:     opts.Clock,
		logger:    opts.Logger,
		loggerFn:  opts.LoggerProvider,
	}
}

// SimulatePrices reports whether the checker uses simulated prices.
func (c *Checker) SimulatePrices() bool {
	return c.cfg.SimulatePrices
}

// yesPrices returns simulated prices when configured so or when live prices are not available.
func (c *Checker) yesPrices(ctx context.Context, req PriceRequest) (polyYes, kalshiYes decimal.Decimal, simulated bool, err error) {
	if !c.cfg.SimulatePrices {
		p, k, liveErr := c.live.YesPrices(ctx, req)
		if liveErr == nil {
			return p, k, false, nil
		}
		if !errors.Is(liveErr, ErrNoPrice) {
			return decimal.Zero, decimal.Zero, false, liveErr
		}
		c.getLogger(ctx).Info("live prices are not available, falling back to simulated ones",
			log.String("polymarket_token_id", req.PolymarketTokenID))
	}
	p, k, _ := c.simulated.YesPrices(ctx, req)
	return p, k, true, nil
}

func (c *Checker) randomVolume(min, span int) float64 {
	return float64(min + c.rnd.Intn(span))
}

func (c *Checker) now() time.Time {
	return c.clock.Now().UTC()
}

func (c *Checker) getLogger(ctx context.Context) log.FieldLogger {
	if c.loggerFn != nil {
		if l := c.loggerFn(ctx); l != nil {
			return l
		}
	}
	return c.logger
}
