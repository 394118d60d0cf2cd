/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package arbitrage

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trade directions.
const (
	DirectionYesPolyNoKalshi = "Yes Poly + No Kalshi"
	DirectionNoPolyYesKalshi = "No Poly + Yes Kalshi"
	DirectionIntraPolymarket = "Intra-Polymarket Slippage"
	DirectionNone            = "No arbitrage opportunity"
)

// Fees are trading fee rates of both platforms as fractions of the position.
type Fees struct {
	Kalshi     decimal.Decimal
	Polymarket decimal.Decimal
}

// Total returns the combined fee of a two-leg trade.
func (f Fees) Total() decimal.Decimal {
	return f.Kalshi.Add(f.Polymarket)
}

// Evaluation is the outcome of pricing both cross-platform hedges.
// Arb1 covers Yes on Polymarket with No on Kalshi, Arb2 the opposite.
// Gross, Fees and Net are fractions of $1.
type Evaluation struct {
	Arb1, Arb2    decimal.Decimal
	Direction     string
	ProfitableSum decimal.NullDecimal
	Gross         decimal.Decimal
	Fees          decimal.Decimal
	Net           decimal.Decimal
}

// Profitable reports whether a hedge costs less than $1 even after fees.
func (e *Evaluation) Profitable() bool {
	return e.ProfitableSum.Valid && e.Net.IsPositive()
}

// Evaluate checks whether buying both sides across platforms costs less than the $1 payout.
// The first hedge that costs less than $1 wins; fees apply only when one does.
func Evaluate(polyYes, kalshiYes decimal.Decimal, fees Fees) Evaluation {
	polyNo, kalshiNo := one.Sub(polyYes), one.Sub(kalshiYes)
	e := Evaluation{
		Arb1:      polyYes.Add(kalshiNo),
		Arb2:      polyNo.Add(kalshiYes),
		Direction: DirectionNone,
	}
	switch {
	case e.Arb1.LessThan(one):
		e.ProfitableSum = decimal.NewNullDecimal(e.Arb1)
		e.Direction = DirectionYesPolyNoKalshi
	case e.Arb2.LessThan(one):
		e.ProfitableSum = decimal.NewNullDecimal(e.Arb2)
		e.Direction = DirectionNoPolyYesKalshi
	}
	if e.ProfitableSum.Valid {
		e.Gross = one.Sub(e.ProfitableSum.Decimal)
		e.Fees = fees.Total()
	}
	e.Net = e.Gross.Sub(e.Fees)
	return e
}

// Calculation renders both hedge costs.
func (e *Evaluation) Calculation() string {
	return fmt.Sprintf("%s = %s | %s = %s",
		DirectionYesPolyNoKalshi, e.Arb1.StringFixed(3), DirectionNoPolyYesKalshi, e.Arb2.StringFixed(3))
}

// Explanation describes the evaluation in one line.
func (e *Evaluation) Explanation() string {
	switch {
	case e.Profitable():
		return fmt.Sprintf("Cost: $%s | Gross: %s%% | Fees: %s%% | Net: %s%%",
			e.ProfitableSum.Decimal.StringFixed(3), percent(e.Gross), percent(e.Fees), percent(e.Net))
	case e.ProfitableSum.Valid:
		return fmt.Sprintf("Arbitrage exists (%s%% gross) but fees (%s%%) eliminate profit",
			percent(e.Gross), percent(e.Fees))
	default:
		return "Both combinations cost > $1.00, no arbitrage opportunity"
	}
}

// percent renders a fraction as a percentage with two decimals.
func percent(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(2)
}

// positivePercent works like percent but renders non-positive values as "0".
func positivePercent(d decimal.Decimal) string {
	if !d.IsPositive() {
		return "0"
	}
	return percent(d)
}

// cents converts a price to whole cents, rounding half up.
func cents(price decimal.Decimal) int64 {
	return price.Mul(hundred).Round(0).IntPart()
}
