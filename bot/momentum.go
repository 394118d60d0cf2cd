/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package bot

import (
	"context"
	"fmt"
	"net/url"

	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/service"
)

// Signal actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// MarketData provides markets and their prices. *dome.Client implements it.
type MarketData interface {
	Markets(ctx context.Context, params url.Values) ([]dome.Market, error)
	MarketPrice(ctx context.Context, tokenID string) (*dome.MarketPrice, error)
}

// Signal is a trading decision for a market.
type Signal struct {
	Action  string
	Market  string
	TokenID string
	Price   float64
}

// Momentum checks the first markets on every run and signals a buy when the first outcome
// is priced above BuyAbove and a sell when it is priced below SellBelow.
type Momentum struct {
	data    MarketData
	state   *State
	cfg     Config
	logger  log.FieldLogger
	metrics MetricsCollector
}

// MomentumOpts represents options for Momentum.
type MomentumOpts struct {
	// MetricsCollector may be nil, metrics are disabled in this case.
	MetricsCollector MetricsCollector
}

var _ service.Worker = (*Momentum)(nil)

// NewMomentum creates a new Momentum worker.
func NewMomentum(data MarketData, state *State, cfg *Config, logger log.FieldLogger, opts MomentumOpts) *Momentum {
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &Momentum{data: data, state: state, cfg: *cfg, logger: logger, metrics: opts.MetricsCollector}
}

// Run is a part of service.Worker interface. It does nothing while the bot is stopped.
func (m *Momentum) Run(ctx context.Context) error {
	if !m.state.Running() {
		return nil
	}
	if strategy := m.state.Strategy(); strategy != StrategyMomentum {
		m.logger.Debug("strategy is not executable, skipping run", log.String("strategy", strategy))
		return nil
	}
	_, err := m.Check(ctx)
	return err
}

// Check runs one momentum pass and returns the signals.
// Markets whose price can't be fetched are logged and skipped.
func (m *Momentum) Check(ctx context.Context) ([]Signal, error) {
	markets, err := m.data.Markets(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	m.logger.Info("momentum strategy run", log.Int("markets", len(markets)))
	if len(markets) > m.cfg.MarketsToCheck {
		markets = markets[:m.cfg.MarketsToCheck]
	}

	var signals []Signal
	for i := range markets {
		market := &markets[i]
		tokenID := market.SideATokenID()
		logger := m.logger.With(log.String("market", market.DisplayTitle()), log.String("token_id", tokenID))
		if tokenID == "" {
			logger.Warn("market has no token id, skipping")
			continue
		}
		price, err := m.data.MarketPrice(ctx, tokenID)
		if err != nil {
			logger.Error("failed to fetch market price", log.Error(err))
			continue
		}
		if price.Price == nil {
			logger.Debug("market has no price")
			continue
		}

		var action string
		switch p := *price.Price; {
		case p > m.cfg.BuyAbove:
			action = ActionBuy
		case p < m.cfg.SellBelow:
			action = ActionSell
		default:
			continue
		}
		logger.Info(fmt.Sprintf("%s signal", action), log.Float64("price", *price.Price))
		m.metrics.IncSignals(action)
		signals = append(signals, Signal{Action: action, Market: market.DisplayTitle(), TokenID: tokenID, Price: *price.Price})
	}
	return signals, nil
}

// NewMomentumUnit wraps Momentum into a periodic service unit.
// Stopping the unit cancels the schedule.
func NewMomentumUnit(momentum *Momentum, pwOpts service.PeriodicWorkerOpts, metrics *PrometheusMetrics) *service.WorkerUnit {
	pw := service.NewPeriodicWorkerWithOpts(momentum, momentum.cfg.Interval, momentum.logger, pwOpts)
	opts := service.WorkerUnitOpts{}
	if metrics != nil {
		opts.MetricsRegisterer = metrics
	}
	return service.NewWorkerUnitWithOpts(pw, opts)
}
