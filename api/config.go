/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package api

import (
	"fmt"
	"time"

	"github.com/predictdash/predictdash/config"
)

const (
	cfgKeyPriceStaggerDelay = "priceStaggerDelay"
	cfgKeyMaxBatchTokens    = "maxBatchTokens"
	cfgKeyCORSOrigins       = "cors.allowedOrigins"
	cfgDefaultAPIPrefix     = "api"
)

// Defaults for the batched price endpoint.
const (
	DefaultPriceStaggerDelay = 200 * time.Millisecond
	DefaultMaxBatchTokens    = 25
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for the API handlers.
type Config struct {
	// PriceStaggerDelay is the pause between launching per-token lookups in /api/market-prices.
	PriceStaggerDelay time.Duration
	// MaxBatchTokens caps the number of token ids accepted by one /api/market-prices call.
	MaxBatchTokens int
	// CORSAllowedOrigins lists origins allowed to call the API. Empty means any origin.
	CORSAllowedOrigins []string

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{keyPrefix: cfgDefaultAPIPrefix}
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		PriceStaggerDelay: DefaultPriceStaggerDelay,
		MaxBatchTokens:    DefaultMaxBatchTokens,
		keyPrefix:         cfgDefaultAPIPrefix,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyPriceStaggerDelay, DefaultPriceStaggerDelay)
	dp.SetDefault(cfgKeyMaxBatchTokens, DefaultMaxBatchTokens)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.PriceStaggerDelay, err = dp.GetDuration(cfgKeyPriceStaggerDelay); err != nil {
		return err
	}
	if c.PriceStaggerDelay < 0 {
		return dp.WrapKeyErr(cfgKeyPriceStaggerDelay, fmt.Errorf("cannot be negative"))
	}
	if c.MaxBatchTokens, err = dp.GetInt(cfgKeyMaxBatchTokens); err != nil {
		return err
	}
	if c.MaxBatchTokens <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxBatchTokens, fmt.Errorf("must be positive"))
	}
	if c.CORSAllowedOrigins, err = dp.GetStringSlice(cfgKeyCORSOrigins); err != nil {
		return err
	}
	return nil
}
