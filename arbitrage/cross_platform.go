/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package arbitrage

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/log"
)

// Messages of checks that found nothing to compare.
const (
	MessageNoMatch         = "No matching Kalshi market found"
	MessageIncompleteMatch = "Incomplete match - missing platform data"
	ReasonNoKalshiMarkets  = "This market type may not have Kalshi equivalents"
)

// Executability thresholds of the cross-platform check (total volume, USD).
const (
	goodPolymarketVolume = 20000
	goodKalshiVolume     = 10000
)

// PolymarketQuote is the Polymarket side of a cross-platform check. Prices are in cents.
type PolymarketQuote struct {
	Platform   string  `json:"platform"`
	YesPrice   int64   `json:"yesPrice"`
	NoPrice    int64   `json:"noPrice"`
	MarketSlug string  `json:"marketSlug"`
	Volume     float64 `json:"volume"`
}

// KalshiQuote is the Kalshi side of a cross-platform check. Prices are in cents.
type KalshiQuote struct {
	Platform      string   `json:"platform"`
	YesPrice      int64    `json:"yesPrice"`
	NoPrice       int64    `json:"noPrice"`
	EventTicker   string   `json:"eventTicker"`
	MarketTickers []string `json:"marketTickers"`
	Volume        float64  `json:"volume"`
}

// FeePercents are fee rates rendered as percentages.
type FeePercents struct {
	Total      string `json:"total"`
	Kalshi     string `json:"kalshi"`
	Polymarket string `json:"polymarket"`
}

// Opportunity describes the evaluated hedge.
type Opportunity struct {
	Exists        bool        `json:"exists"`
	Percent       string      `json:"percent"`
	Direction     string      `json:"direction"`
	Calculation   string      `json:"calculation"`
	ProfitableSum *string     `json:"profitableSum"`
	GrossProfit   string      `json:"grossProfit"`
	NetProfit     string      `json:"netProfit"`
	Fees          FeePercents `json:"fees"`
	Explanation   string      `json:"explanation"`
}

// Liquidity estimates how much of the opportunity can be executed.
type Liquidity struct {
	PolyVolume    float64 `json:"polyVolume"`
	KalshiVolume  float64 `json:"kalshiVolume"`
	TotalVolume   float64 `json:"totalVolume"`
	Executability string  `json:"executability"`
	MaxPosition   int64   `json:"maxPosition"`
}

// Metadata describes how the check was made.
type Metadata struct {
	MatchQuality    string    `json:"matchQuality"`
	LastChecked     time.Time `json:"lastChecked"`
	PricesSimulated bool      `json:"pricesSimulated"`
	Note            string    `json:"note"`
}

// CheckResult is the outcome of a cross-platform check.
// When no comparable pair is found only Exists, Market, Message and Reason or Platforms are set.
type CheckResult struct {
	Exists     bool             `json:"exists"`
	Market     string           `json:"market"`
	Message    string           `json:"message,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Platforms  []string         `json:"platforms,omitempty"`
	MatchFound bool             `json:"matchFound,omitempty"`
	PlatformA  *PolymarketQuote `json:"platformA,omitempty"`
	PlatformB  *KalshiQuote     `json:"platformB,omitempty"`
	Arbitrage  *Opportunity     `json:"arbitrage,omitempty"`
	Liquidity  *Liquidity       `json:"liquidity,omitempty"`
	Metadata   *Metadata        `json:"metadata,omitempty"`
}

// CheckCrossPlatform estimates arbitrage between the Polymarket market and its Kalshi match.
// Market and Kalshi listings that cannot be fetched are replaced with placeholders, so only the matching lookup
// failure is returned as an error.
func (c *Checker) CheckCrossPlatform(ctx context.Context, marketSlug string) (*CheckResult, error) {
	logger := c.getLogger(ctx).With(log.String("market_slug", marketSlug))

	matches, err := c.data.MatchingSportsMarkets(ctx, marketSlug)
	if err != nil {
		return nil, fmt.Errorf("find matching markets: %w", err)
	}
	event, ok := matches.First()
	if !ok {
		return &CheckResult{Market: marketSlug, Message: MessageNoMatch, Reason: ReasonNoKalshiMarkets}, nil
	}
	polyMatch, hasPoly := event.Find(dome.PlatformPolymarket)
	kalshiMatch, hasKalshi := event.Find(dome.PlatformKalshi)
	if !hasPoly || !hasKalshi {
		return &CheckResult{Market: marketSlug, Message: MessageIncompleteMatch, Platforms: event.PlatformNames()}, nil
	}

	polyMarket := c.findPolymarketMarket(ctx, logger, marketSlug)
	kalshiMarket, kalshiFound := c.findKalshiMarket(ctx, logger, kalshiMatch)

	priceReq := PriceRequest{PolymarketTokenID: polyMarket.SideATokenID()}
	if kalshiFound {
		priceReq.Kalshi = &kalshiMarket
	}
	polyYes, kalshiYes, simulated, err := c.yesPrices(ctx, priceReq)
	if err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}

	eval := Evaluate(polyYes, kalshiYes, c.cfg.Fees)
	market := polyMarket.DisplayTitle()
	if market == "" {
		market = marketSlug
	}

	marketTickers := kalshiMatch.MarketTickers
	if marketTickers == nil {
		marketTickers = []string{}
	}

	result := &CheckResult{
		Exists:     eval.ProfitableSum.Valid,
		Market:     market,
		MatchFound: true,
		PlatformA: &PolymarketQuote{
			Platform:   "Polymarket",
			YesPrice:   cents(polyYes),
			NoPrice:    cents(one.Sub(polyYes)),
			MarketSlug: polyMatch.MarketSlug,
			Volume:     polyMarket.VolumeTotal,
		},
		PlatformB: &KalshiQuote{
			Platform:      "Kalshi",
			YesPrice:      cents(kalshiYes),
			NoPrice:       cents(one.Sub(kalshiYes)),
			EventTicker:   kalshiMatch.EventTicker,
			MarketTickers: marketTickers,
			Volume:        kalshiMarket.Volume,
		},
		Arbitrage: c.makeOpportunity(&eval),
		Liquidity: makeLiquidity(polyMarket.VolumeTotal, kalshiMarket.Volume),
		Metadata: &Metadata{
			MatchQuality:    "high",
			LastChecked:     c.now(),
			PricesSimulated: simulated,
			Note:            c.note(simulated),
		},
	}
	return result, nil
}

func (c *Checker) makeOpportunity(eval *Evaluation) *Opportunity {
	var profitableSum *string
	if eval.ProfitableSum.Valid {
		s := eval.ProfitableSum.Decimal.StringFixed(3)
		profitableSum = &s
	}
	return &Opportunity{
		Exists:        eval.Profitable(),
		Percent:       positivePercent(eval.Net),
		Direction:     eval.Direction,
		Calculation:   eval.Calculation(),
		ProfitableSum: profitableSum,
		GrossProfit:   positivePercent(eval.Gross),
		NetProfit:     positivePercent(eval.Net),
		Fees: FeePercents{
			Total:      percent(eval.Fees),
			Kalshi:     percent(c.cfg.Fees.Kalshi),
			Polymarket: percent(c.cfg.Fees.Polymarket),
		},
		Explanation: eval.Explanation(),
	}
}

func makeLiquidity(polyVolume, kalshiVolume float64) *Liquidity {
	executability := "limited"
	if polyVolume > goodPolymarketVolume && kalshiVolume > goodKalshiVolume {
		executability = "good"
	}
	return &Liquidity{
		PolyVolume:    polyVolume,
		KalshiVolume:  kalshiVolume,
		TotalVolume:   polyVolume + kalshiVolume,
		Executability: executability,
		MaxPosition:   int64(math.Min(math.Floor(polyVolume*0.1), math.Floor(kalshiVolume*0.1))),
	}
}

func (c *Checker) note(simulated bool) string {
	fees := fmt.Sprintf("Fees: Kalshi %s%%, Poly ~%s%%", trimPercent(c.cfg.Fees.Kalshi), trimPercent(c.cfg.Fees.Polymarket))
	if simulated {
		return "Prices simulated for demo - use premium endpoints for real-time data. " + fees
	}
	return "Live prices: Polymarket market price and Kalshi last trade. " + fees
}

func trimPercent(d decimal.Decimal) string {
	return d.Mul(hundred).String()
}

// findPolymarketMarket looks the market up in the cross-platform listing.
// A placeholder with a random volume is returned when it's not there.
func (c *Checker) findPolymarketMarket(ctx context.Context, logger log.FieldLogger, marketSlug string) dome.Market {
	markets, err := c.data.AllMarkets(ctx)
	if err != nil {
		logger.Warn("failed to fetch markets, using placeholder market data", log.Error(err))
	}
	for i := range markets {
		if markets[i].MarketSlug == marketSlug {
			return markets[i]
		}
	}
	question := "Market Prediction"
	if strings.Contains(marketSlug, "nfl") {
		question = "NFL Game Outcome"
	}
	return dome.Market{MarketSlug: marketSlug, Question: question, VolumeTotal: c.randomVolume(10000, 100000)}
}

// findKalshiMarket returns the first Kalshi market of the matched event.
// A placeholder with a random volume is returned (with found=false) when there is none.
func (c *Checker) findKalshiMarket(
	ctx context.Context, logger log.FieldLogger, match dome.PlatformMatch,
) (market dome.KalshiMarket, found bool) {
	markets, err := c.data.KalshiMarkets(ctx, nil)
	if err != nil {
		logger.Warn("failed to fetch Kalshi markets, using placeholder market data", log.Error(err))
	}
	for _, m := range markets {
		if m.EventTicker == match.EventTicker {
			return m, true
		}
	}
	return dome.KalshiMarket{
		EventTicker: match.EventTicker,
		Title:       "NFL Game Market",
		Volume:      c.randomVolume(5000, 50000),
	}, false
}
