/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dome

import (
	"fmt"
	"net/url"
	"time"

	"github.com/predictdash/predictdash/cache"
	"github.com/predictdash/predictdash/config"
	"github.com/predictdash/predictdash/dispatcher"
)

// DefaultBaseURL is the base URL of the Dome API.
const DefaultBaseURL = "https://api.domeapi.io/v1"

const (
	cfgKeyBaseURL         = "baseURL"
	cfgKeyAPIKey          = "apiKey"
	cfgKeyMinDelay        = "minDelay"
	cfgKeyCacheTTL        = "cacheTTL"
	cfgKeyCacheMaxEntries = "cacheMaxEntries"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a set of configuration parameters for the Dome API access.
type Config struct {
	BaseURL string
	APIKey  string

	// MinDelay is the pause between successive upstream calls.
	MinDelay time.Duration

	CacheTTL        time.Duration
	CacheMaxEntries int

	keyPrefix string
}

// NewConfig creates a new instance of the Config with the "dome" key prefix.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("dome")
}

// NewConfigWithKeyPrefix creates a new instance of the Config with the given key prefix.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBaseURL, DefaultBaseURL)
	dp.SetDefault(cfgKeyAPIKey, "")
	dp.SetDefault(cfgKeyMinDelay, dispatcher.DefaultMinDelay)
	dp.SetDefault(cfgKeyCacheTTL, cache.DefaultResponseTTL)
	dp.SetDefault(cfgKeyCacheMaxEntries, 0)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.BaseURL, err = dp.GetString(cfgKeyBaseURL); err != nil {
		return err
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return dp.WrapKeyErr(cfgKeyBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return dp.WrapKeyErr(cfgKeyBaseURL, fmt.Errorf("must be an absolute http(s) URL"))
	}

	if c.APIKey, err = dp.GetString(cfgKeyAPIKey); err != nil {
		return err
	}

	if c.MinDelay, err = dp.GetDuration(cfgKeyMinDelay); err != nil {
		return err
	}
	if c.MinDelay <= 0 {
		return dp.WrapKeyErr(cfgKeyMinDelay, fmt.Errorf("must be positive"))
	}

	if c.CacheTTL, err = dp.GetDuration(cfgKeyCacheTTL); err != nil {
		return err
	}
	if c.CacheTTL < 0 {
		return dp.WrapKeyErr(cfgKeyCacheTTL, fmt.Errorf("cannot be negative"))
	}

	if c.CacheMaxEntries, err = dp.GetInt(cfgKeyCacheMaxEntries); err != nil {
		return err
	}
	if c.CacheMaxEntries < 0 {
		return dp.WrapKeyErr(cfgKeyCacheMaxEntries, fmt.Errorf("cannot be negative"))
	}

	return nil
}
