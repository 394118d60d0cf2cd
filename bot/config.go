/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package bot

import (
	"fmt"
	"time"

	"github.com/predictdash/predictdash/config"
)

// Default values of the bot configuration.
const (
	DefaultInterval       = 30 * time.Second
	DefaultMarketsToCheck = 5
	DefaultBuyAbove       = 0.6
	DefaultSellBelow      = 0.4
)

const (
	cfgKeyInterval        = "interval"
	cfgKeyDefaultStrategy = "defaultStrategy"
	cfgKeyMarketsToCheck  = "marketsToCheck"
	cfgKeyBuyAbove        = "buyAbove"
	cfgKeySellBelow       = "sellBelow"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for the bot.
type Config struct {
	Interval        time.Duration
	DefaultStrategy string
	MarketsToCheck  int
	BuyAbove        float64
	SellBelow       float64
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Interval:        DefaultInterval,
		DefaultStrategy: StrategyMomentum,
		MarketsToCheck:  DefaultMarketsToCheck,
		BuyAbove:        DefaultBuyAbove,
		SellBelow:       DefaultSellBelow,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return "bot"
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault(cfgKeyInterval, def.Interval)
	dp.SetDefault(cfgKeyDefaultStrategy, def.DefaultStrategy)
	dp.SetDefault(cfgKeyMarketsToCheck, def.MarketsToCheck)
	dp.SetDefault(cfgKeyBuyAbove, def.BuyAbove)
	dp.SetDefault(cfgKeySellBelow, def.SellBelow)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Interval, err = dp.GetDuration(cfgKeyInterval); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return dp.WrapKeyErr(cfgKeyInterval, fmt.Errorf("must be positive"))
	}
	if c.DefaultStrategy, err = dp.GetString(cfgKeyDefaultStrategy); err != nil {
		return err
	}
	if c.MarketsToCheck, err = dp.GetInt(cfgKeyMarketsToCheck); err != nil {
		return err
	}
	if c.MarketsToCheck <= 0 {
		return dp.WrapKeyErr(cfgKeyMarketsToCheck, fmt.Errorf("must be positive"))
	}
	if c.BuyAbove, err = dp.GetFloat64(cfgKeyBuyAbove); err != nil {
		return err
	}
	if c.SellBelow, err = dp.GetFloat64(cfgKeySellBelow); err != nil {
		return err
	}
	if c.SellBelow > c.BuyAbove {
		return dp.WrapKeyErr(cfgKeySellBelow, fmt.Errorf("must not be greater than %s", cfgKeyBuyAbove))
	}
	return nil
}
