/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package arbitrage

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/log"
)

// Timeframes recognized in market titles.
const (
	Timeframe15m   = "15m"
	Timeframe30m   = "30m"
	Timeframe1h    = "1h"
	TimeframeDaily = "daily"
)

// StrikeTolerance is the maximum difference of strike prices (USD) of markets considered equivalent.
const StrikeTolerance = 1000

// Executability thresholds of BTC checks (USD).
const (
	goodBTCPolymarketVolume = 10000
	goodBTCKalshiVolume     = 5000
)

var timeframeMarkers = []struct {
	timeframe string
	markers   []string
}{
	{Timeframe15m, []string{"15 minute", "15min", "15m"}},
	{Timeframe30m, []string{"30 minute", "30min", "30m"}},
	{Timeframe1h, []string{"1 hour", "1h", "60m"}},
	{TimeframeDaily, []string{"daily", "24h", "day"}},
}

var strikePriceRe = regexp.MustCompile(`\$([0-9,]+(?:\.[0-9]+)?)`)

// ExtractTimeframe returns the timeframe mentioned in the market title or "" if there is none.
func ExtractTimeframe(title string) string {
	lower := strings.ToLower(title)
	for _, tm := range timeframeMarkers {
		for _, marker := range tm.markers {
			if strings.Contains(lower, marker) {
				return tm.timeframe
			}
		}
	}
	return ""
}

// ExtractStrikePrice returns the first dollar amount mentioned in the market title.
func ExtractStrikePrice(title string) (float64, bool) {
	m := strikePriceRe.FindStringSubmatch(title)
	if m == nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func isShortTermTimeframe(tf string) bool {
	return tf == Timeframe15m || tf == Timeframe30m
}

func isBTCTitle(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "bitcoin") || strings.Contains(lower, "btc")
}

// BTCFees are fee rates of a BTC opportunity in percent.
type BTCFees struct {
	Kalshi     float64 `json:"kalshi"`
	Polymarket float64 `json:"polymarket"`
	Total      float64 `json:"total"`
}

// BTCOpportunity is a BTC market with a hedge that costs less than $1.
type BTCOpportunity struct {
	Market        string  `json:"market"`
	Timeframe     string  `json:"timeframe"`
	StrikePrice   float64 `json:"strikePrice"`
	Direction     string  `json:"direction"`
	GrossProfit   string  `json:"grossProfit"`
	NetProfit     string  `json:"netProfit"`
	Fees          BTCFees `json:"fees"`
	PolyVolume    string  `json:"polyVolume"`
	KalshiVolume  string  `json:"kalshiVolume"`
	MaxPosition   float64 `json:"maxPosition"`
	Executability string  `json:"executability"`
}

// BTCReport is the outcome of a BTC scan.
type BTCReport struct {
	Success   bool             `json:"success"`
	Arbs      []BTCOpportunity `json:"arbs"`
	Count     int              `json:"count"`
	Timestamp time.Time        `json:"timestamp"`
	Note      string           `json:"note"`
}

type btcMarket struct {
	title     string
	timeframe string
	strike    float64
	yes, no   decimal.Decimal
	volume    float64
}

// CheckBTC matches short-term Polymarket BTC markets with Kalshi BTC markets of the same timeframe
// and a strike price within StrikeTolerance. Unmatched markets are checked for intra-Polymarket slippage.
// Prices are taken from the listings.
func (c *Checker) CheckBTC(ctx context.Context) (*BTCReport, error) {
	polyMarkets, err := c.fetchBTCPolymarketMarkets(ctx)
	if err != nil {
		return nil, err
	}

	kalshiMarkets, err := c.data.KalshiMarkets(ctx, url.Values{
		"status":     {"open"},
		"min_volume": {"5000"},
		"limit":      {"30"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch kalshi markets: %w", err)
	}
	var kalshiBTC []dome.KalshiMarket
	for _, m := range kalshiMarkets {
		if isBTCTitle(m.Title) {
			kalshiBTC = append(kalshiBTC, m)
		}
	}
	c.getLogger(ctx).Info("BTC markets fetched",
		log.Int("polymarket_markets", len(polyMarkets)), log.Int("kalshi_markets", len(kalshiBTC)))

	arbs := []BTCOpportunity{}
	for _, pm := range polyMarkets {
		if km, ok := findKalshiBTCMatch(pm, kalshiBTC); ok {
			if opp, ok := c.crossBTCOpportunity(pm, km); ok {
				arbs = append(arbs, opp)
			}
			continue
		}
		if opp, ok := c.intraBTCOpportunity(pm); ok {
			arbs = append(arbs, opp)
		}
	}
	return &BTCReport{
		Success:   true,
		Arbs:      arbs,
		Count:     len(arbs),
		Timestamp: c.now(),
		Note:      "BTC short-term arbitrage scan. Real prices from Polymarket, Kalshi filtered by title.",
	}, nil
}

// CheckBTCIntra looks for short-term Polymarket BTC markets whose outcomes together cost less than $1.
func (c *Checker) CheckBTCIntra(ctx context.Context) (*BTCReport, error) {
	start := c.clock.Now()
	polyMarkets, err := c.fetchBTCPolymarketMarkets(ctx)
	if err != nil {
		return nil, err
	}
	arbs := []BTCOpportunity{}
	for _, pm := range polyMarkets {
		if opp, ok := c.intraBTCOpportunity(pm); ok {
			arbs = append(arbs, opp)
		}
	}
	c.getLogger(ctx).Info(fmt.Sprintf("BTC intra check completed in %dms", c.clock.Since(start).Milliseconds()),
		log.Int("checked", len(polyMarkets)), log.Int("found", len(arbs)))
	return &BTCReport{
		Success:   true,
		Arbs:      arbs,
		Count:     len(arbs),
		Timestamp: c.now(),
		Note:      "BTC intra-Polymarket slippage scan. Real prices from Polymarket.",
	}, nil
}

func (c *Checker) fetchBTCPolymarketMarkets(ctx context.Context) ([]btcMarket, error) {
	markets, err := c.data.Markets(ctx, url.Values{
		"tags":       {"Bitcoin"},
		"status":     {"open"},
		"min_volume": {"5000"},
		"limit":      {"10"},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch polymarket BTC markets: %w", err)
	}
	var result []btcMarket
	for i := range markets {
		title := markets[i].DisplayTitle()
		tf := ExtractTimeframe(title)
		if !isShortTermTimeframe(tf) {
			continue
		}
		strike, ok := ExtractStrikePrice(title)
		if !ok || strike == 0 {
			continue
		}
		result = append(result, btcMarket{
			title:     title,
			timeframe: tf,
			strike:    strike,
			yes:       decimal.NewFromFloat(markets[i].SideA.Price).Div(hundred),
			no:        decimal.NewFromFloat(markets[i].SideB.Price).Div(hundred),
			volume:    markets[i].Volume,
		})
	}
	return result, nil
}

func findKalshiBTCMatch(pm btcMarket, kalshiMarkets []dome.KalshiMarket) (dome.KalshiMarket, bool) {
	for _, km := range kalshiMarkets {
		if ExtractTimeframe(km.Title) != pm.timeframe {
			continue
		}
		strike, ok := ExtractStrikePrice(km.Title)
		if !ok || strike == 0 {
			continue
		}
		if math.Abs(strike-pm.strike) <= StrikeTolerance {
			return km, true
		}
	}
	return dome.KalshiMarket{}, false
}

func (c *Checker) crossBTCOpportunity(pm btcMarket, km dome.KalshiMarket) (BTCOpportunity, bool) {
	kalshiYes := decimal.NewFromFloat(km.LastPrice).Div(hundred)
	arb1 := pm.yes.Add(one.Sub(kalshiYes))
	arb2 := pm.no.Add(kalshiYes)
	if !arb1.LessThan(one) && !arb2.LessThan(one) {
		return BTCOpportunity{}, false
	}
	direction := DirectionNoPolyYesKalshi
	if arb1.LessThan(arb2) {
		direction = DirectionYesPolyNoKalshi
	}
	gross := one.Sub(decimal.Min(arb1, arb2)).Mul(hundred)
	fees := c.btcFeePercents(true)
	executability := "limited"
	if pm.volume > goodBTCPolymarketVolume && km.Volume > goodBTCKalshiVolume {
		executability = "good"
	}
	return BTCOpportunity{
		Market:        pm.title,
		Timeframe:     pm.timeframe,
		StrikePrice:   pm.strike,
		Direction:     direction,
		GrossProfit:   gross.StringFixed(2),
		NetProfit:     gross.Sub(decimal.NewFromFloat(fees.Total)).StringFixed(2),
		Fees:          fees,
		PolyVolume:    formatVolume(pm.volume),
		KalshiVolume:  formatVolume(km.Volume),
		MaxPosition:   math.Min(pm.volume, km.Volume) * 0.1,
		Executability: executability,
	}, true
}

func (c *Checker) intraBTCOpportunity(pm btcMarket) (BTCOpportunity, bool) {
	sum := pm.yes.Add(pm.no)
	if !sum.LessThan(one) {
		return BTCOpportunity{}, false
	}
	gross := one.Sub(sum).Mul(hundred)
	fees := c.btcFeePercents(false)
	executability := "limited"
	if pm.volume > goodBTCPolymarketVolume {
		executability = "good"
	}
	return BTCOpportunity{
		Market:        pm.title,
		Timeframe:     pm.timeframe,
		StrikePrice:   pm.strike,
		Direction:     DirectionIntraPolymarket,
		GrossProfit:   gross.StringFixed(2),
		NetProfit:     gross.Sub(decimal.NewFromFloat(fees.Total)).StringFixed(2),
		Fees:          fees,
		PolyVolume:    formatVolume(pm.volume),
		KalshiVolume:  "N/A",
		MaxPosition:   pm.volume * 0.1,
		Executability: executability,
	}, true
}

func (c *Checker) btcFeePercents(withKalshi bool) BTCFees {
	fees := BTCFees{Polymarket: c.cfg.BTCFees.Polymarket.Mul(hundred).InexactFloat64()}
	if withKalshi {
		fees.Kalshi = c.cfg.BTCFees.Kalshi.Mul(hundred).InexactFloat64()
	}
	fees.Total = decimal.NewFromFloat(fees.Kalshi).Add(decimal.NewFromFloat(fees.Polymarket)).InexactFloat64()
	return fees
}

// formatVolume renders a volume with thousands separators and at most three fraction digits.
func formatVolume(v float64) string {
	s := strconv.FormatFloat(math.Round(math.Abs(v)*1000)/1000, 'f', -1, 64)
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	if v < 0 {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
