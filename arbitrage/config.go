/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package arbitrage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/predictdash/predictdash/config"
)

// Default fee rates (fractions of the position).
var (
	DefaultKalshiFee        = decimal.RequireFromString("0.007")
	DefaultPolymarketFee    = decimal.RequireFromString("0.003")
	DefaultBTCKalshiFee     = decimal.RequireFromString("0.012")
	DefaultBTCPolymarketFee = decimal.RequireFromString("0.003")
)

// DefaultScanLimit is the number of markets checked by Scan.
const DefaultScanLimit = 10

const (
	cfgKeySimulatePrices      = "simulatePrices"
	cfgKeyFeesKalshi          = "fees.kalshi"
	cfgKeyFeesPolymarket      = "fees.polymarket"
	cfgKeyBTCFeesKalshi       = "btcFees.kalshi"
	cfgKeyBTCFeesPolymarket   = "btcFees.polymarket"
	cfgKeyScanLimit           = "scanLimit"
	cfgDefaultArbitragePrefix = "arbitrage"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for arbitrage estimation.
type Config struct {
	// SimulatePrices makes cross-platform checks use random prices around 0.5 instead of upstream prices.
	SimulatePrices bool

	Fees    Fees
	BTCFees Fees

	ScanLimit int

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultArbitragePrefix}
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		SimulatePrices: true,
		Fees:           Fees{Kalshi: DefaultKalshiFee, Polymarket: DefaultPolymarketFee},
		BTCFees:        Fees{Kalshi: DefaultBTCKalshiFee, Polymarket: DefaultBTCPolymarketFee},
		ScanLimit:      DefaultScanLimit,
		keyPrefix:      cfgDefaultArbitragePrefix,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeySimulatePrices, true)
	dp.SetDefault(cfgKeyFeesKalshi, DefaultKalshiFee.InexactFloat64())
	dp.SetDefault(cfgKeyFeesPolymarket, DefaultPolymarketFee.InexactFloat64())
	dp.SetDefault(cfgKeyBTCFeesKalshi, DefaultBTCKalshiFee.InexactFloat64())
	dp.SetDefault(cfgKeyBTCFeesPolymarket, DefaultBTCPolymarketFee.InexactFloat64())
	dp.SetDefault(cfgKeyScanLimit, DefaultScanLimit)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.SimulatePrices, err = dp.GetBool(cfgKeySimulatePrices); err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{cfgKeyFeesKalshi, &c.Fees.Kalshi},
		{cfgKeyFeesPolymarket, &c.Fees.Polymarket},
		{cfgKeyBTCFeesKalshi, &c.BTCFees.Kalshi},
		{cfgKeyBTCFeesPolymarket, &c.BTCFees.Polymarket},
	} {
		if *f.dst, err = getFee(dp, f.key); err != nil {
			return err
		}
	}
	if c.ScanLimit, err = dp.GetInt(cfgKeyScanLimit); err != nil {
		return err
	}
	if c.ScanLimit <= 0 {
		return dp.WrapKeyErr(cfgKeyScanLimit, fmt.Errorf("must be positive"))
	}
	return nil
}

func getFee(dp config.DataProvider, key string) (decimal.Decimal, error) {
	val, err := dp.GetFloat64(key)
	if err != nil {
		return decimal.Zero, err
	}
	if val < 0 || val >= 1 {
		return decimal.Zero, dp.WrapKeyErr(key, fmt.Errorf("must be a fraction in [0, 1)"))
	}
	return decimal.NewFromFloat(val), nil
}
