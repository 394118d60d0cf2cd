/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package arbitrage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/log"
)

// Priorities of scan results.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

var highPriorityPercent = decimal.NewFromInt(3)

// ScanResult is a market with a Kalshi match and a positive arbitrage estimate.
type ScanResult struct {
	Market     string  `json:"market"`
	Slug       string  `json:"slug"`
	ArbPercent string  `json:"arbPercent"`
	Volume     float64 `json:"volume"`
	Priority   string  `json:"priority"`

	percent decimal.Decimal
}

// ScanReport is the outcome of Scan.
type ScanReport struct {
	Scanned       int          `json:"scanned"`
	Opportunities int          `json:"opportunities"`
	Results       []ScanResult `json:"results"`
	Timestamp     time.Time    `json:"timestamp"`
}

// Scan checks the first markets of the cross-platform listing for Kalshi matches
// and returns the ones with a positive arbitrage estimate, best first.
// Markets whose matching lookup fails are logged and skipped.
func (c *Checker) Scan(ctx context.Context) (*ScanReport, error) {
	markets, err := c.data.AllMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	if len(markets) > c.cfg.ScanLimit {
		markets = markets[:c.cfg.ScanLimit]
	}

	results := []ScanResult{}
	for i := range markets {
		market := &markets[i]
		logger := c.getLogger(ctx).With(log.String("market_slug", market.MarketSlug))

		matches, err := c.data.MatchingSportsMarkets(ctx, market.MarketSlug)
		if err != nil {
			logger.Warn("failed to check market for arbitrage", log.Error(err))
			continue
		}
		event, ok := matches.First()
		if !ok {
			continue
		}
		if _, hasKalshi := event.Find(dome.PlatformKalshi); !hasKalshi {
			continue
		}

		pct, err := c.estimatePercent(ctx, market, event)
		if err != nil {
			logger.Warn("failed to estimate arbitrage", log.Error(err))
			continue
		}
		if !pct.IsPositive() {
			continue
		}
		priority := PriorityMedium
		if pct.GreaterThan(highPriorityPercent) {
			priority = PriorityHigh
		}
		results = append(results, ScanResult{
			Market:     market.DisplayTitle(),
			Slug:       market.MarketSlug,
			ArbPercent: pct.StringFixed(2),
			Volume:     market.VolumeTotal,
			Priority:   priority,
			percent:    pct,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].percent.GreaterThan(results[j].percent)
	})
	return &ScanReport{
		Scanned:       len(markets),
		Opportunities: len(results),
		Results:       results,
		Timestamp:     c.now(),
	}, nil
}

// estimatePercent returns the arbitrage estimate in percent.
// With simulated prices 30% of matched markets get a uniform estimate in [0, 5).
// Otherwise the net profit of the live hedge is used.
func (c *Checker) estimatePercent(ctx context.Context, market *dome.Market, event dome.MatchedEvent) (decimal.Decimal, error) {
	if c.cfg.SimulatePrices {
		if c.rnd.Float64() <= 0.7 {
			return decimal.Zero, nil
		}
		return decimal.NewFromFloat(c.rnd.Float64() * 5).Round(2), nil
	}

	kalshiMatch, _ := event.Find(dome.PlatformKalshi)
	kalshiMarkets, err := c.data.KalshiMarkets(ctx, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch kalshi markets: %w", err)
	}
	req := PriceRequest{PolymarketTokenID: market.SideATokenID()}
	for i := range kalshiMarkets {
		if kalshiMarkets[i].EventTicker == kalshiMatch.EventTicker {
			req.Kalshi = &kalshiMarkets[i]
			break
		}
	}
	polyYes, kalshiYes, err := c.live.YesPrices(ctx, req)
	if err != nil {
		return decimal.Zero, err
	}
	eval := Evaluate(polyYes, kalshiYes, c.cfg.Fees)
	if !eval.Profitable() {
		return decimal.Zero, nil
	}
	return eval.Net.Mul(hundred).Round(2), nil
}
