/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/predictdash/predictdash/config"
)

// Default values of the outbound client configuration.
const (
	DefaultClientTimeout                     = 10 * time.Second
	DefaultMaxRetryAttempts                  = 2
	DefaultExponentialBackoffInitialInterval = 1100 * time.Millisecond
	DefaultExponentialBackoffMultiplier      = 2.0
	DefaultSlowRequestThreshold              = time.Second
	DefaultDNSTimeout                        = 5 * time.Second
)

// Retry policies.
const (
	RetryPolicyExponential = "exponential"
	RetryPolicyConstant    = "constant"
)

const (
	cfgKeyTimeout                                 = "timeout"
	cfgKeyRetriesEnabled                          = "retries.enabled"
	cfgKeyRetriesMax                              = "retries.maxAttempts"
	cfgKeyRetriesPolicyStrategy                   = "retries.policy.strategy"
	cfgKeyRetriesPolicyExponentialInitialInterval = "retries.policy.exponentialBackoffInitialInterval"
	cfgKeyRetriesPolicyExponentialMultiplier      = "retries.policy.exponentialBackoffMultiplier"
	cfgKeyRetriesPolicyConstantInterval           = "retries.policy.constantBackoffInterval"
	cfgKeyLoggerEnabled                           = "logger.enabled"
	cfgKeyLoggerMode                              = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold              = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled                          = "metrics.enabled"
	cfgKeyDNSServers                              = "dns.servers"
	cfgKeyDNSTimeout                              = "dns.timeout"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// PolicyConfig describes the backoff between retry attempts.
type PolicyConfig struct {
	Strategy                          string
	ExponentialBackoffInitialInterval time.Duration
	ExponentialBackoffMultiplier      float64
	ConstantBackoffInterval           time.Duration
}

// RetriesConfig represents configuration options for HTTP client retries.
// Retries happen inside a single dispatched upstream call, so they never add concurrency.
type RetriesConfig struct {
	Enabled     bool
	MaxAttempts int
	Policy      PolicyConfig
}

// GetPolicy returns the backoff policy built from the configuration.
func (c *RetriesConfig) GetPolicy() BackoffPolicy {
	switch c.Policy.Strategy {
	case RetryPolicyConstant:
		interval := c.Policy.ConstantBackoffInterval
		return BackoffPolicyFunc(func() backoff.BackOff {
			return backoff.NewConstantBackOff(interval)
		})
	default:
		initial, multiplier := c.Policy.ExponentialBackoffInitialInterval, c.Policy.ExponentialBackoffMultiplier
		return BackoffPolicyFunc(func() backoff.BackOff {
			bf := backoff.NewExponentialBackOff()
			bf.InitialInterval = initial
			bf.Multiplier = multiplier
			bf.Reset()
			return bf
		})
	}
}

// LoggerConfig represents configuration options for HTTP client logs.
type LoggerConfig struct {
	Enabled              bool
	Mode                 LoggingMode
	SlowRequestThreshold time.Duration
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	Enabled bool
}

// DNSConfig represents configuration options for name resolution.
// The system resolver is used when Servers is empty.
type DNSConfig struct {
	Servers []string
	Timeout time.Duration
}

// Config represents options for the outbound HTTP client.
type Config struct {
	Timeout time.Duration
	Retries RetriesConfig
	Logger  LoggerConfig
	Metrics MetricsConfig
	DNS     DNSConfig

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new Config that reads its values under keyPrefix (e.g. "dome.client").
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig returns a Config with default values, as if nothing was configured.
func NewDefaultConfig() *Config {
	return &Config{
		Timeout: DefaultClientTimeout,
		Retries: RetriesConfig{
			Enabled:     true,
			MaxAttempts: DefaultMaxRetryAttempts,
			Policy: PolicyConfig{
				Strategy:                          RetryPolicyExponential,
				ExponentialBackoffInitialInterval: DefaultExponentialBackoffInitialInterval,
				ExponentialBackoffMultiplier:      DefaultExponentialBackoffMultiplier,
			},
		},
		Logger:  LoggerConfig{Enabled: true, Mode: LoggingModeAll, SlowRequestThreshold: DefaultSlowRequestThreshold},
		Metrics: MetricsConfig{Enabled: true},
		DNS:     DNSConfig{Timeout: DefaultDNSTimeout},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault(cfgKeyTimeout, def.Timeout)
	dp.SetDefault(cfgKeyRetriesEnabled, def.Retries.Enabled)
	dp.SetDefault(cfgKeyRetriesMax, def.Retries.MaxAttempts)
	dp.SetDefault(cfgKeyRetriesPolicyStrategy, def.Retries.Policy.Strategy)
	dp.SetDefault(cfgKeyRetriesPolicyExponentialInitialInterval, def.Retries.Policy.ExponentialBackoffInitialInterval)
	dp.SetDefault(cfgKeyRetriesPolicyExponentialMultiplier, def.Retries.Policy.ExponentialBackoffMultiplier)
	dp.SetDefault(cfgKeyRetriesPolicyConstantInterval, DefaultExponentialBackoffInitialInterval)
	dp.SetDefault(cfgKeyLoggerEnabled, def.Logger.Enabled)
	dp.SetDefault(cfgKeyLoggerMode, string(def.Logger.Mode))
	dp.SetDefault(cfgKeyLoggerSlowRequestThreshold, def.Logger.SlowRequestThreshold)
	dp.SetDefault(cfgKeyMetricsEnabled, def.Metrics.Enabled)
	dp.SetDefault(cfgKeyDNSTimeout, def.DNS.Timeout)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, fmt.Errorf("cannot be negative"))
	}
	if err = c.setRetries(dp); err != nil {
		return err
	}
	if err = c.setLogger(dp); err != nil {
		return err
	}
	if c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled); err != nil {
		return err
	}
	return c.setDNS(dp)
}

func (c *Config) setDNS(dp config.DataProvider) error {
	var err error
	if c.DNS.Servers, err = dp.GetStringSlice(cfgKeyDNSServers); err != nil {
		return err
	}
	for _, addr := range c.DNS.Servers {
		if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
			return dp.WrapKeyErr(cfgKeyDNSServers, fmt.Errorf("invalid address %q: %w", addr, splitErr))
		}
	}
	if c.DNS.Timeout, err = dp.GetDuration(cfgKeyDNSTimeout); err != nil {
		return err
	}
	if c.DNS.Timeout <= 0 {
		return dp.WrapKeyErr(cfgKeyDNSTimeout, fmt.Errorf("must be positive"))
	}
	return nil
}

func (c *Config) setRetries(dp config.DataProvider) error {
	var err error
	if c.Retries.Enabled, err = dp.GetBool(cfgKeyRetriesEnabled); err != nil {
		return err
	}
	if !c.Retries.Enabled {
		return nil
	}
	if c.Retries.MaxAttempts, err = dp.GetInt(cfgKeyRetriesMax); err != nil {
		return err
	}
	if c.Retries.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesMax, fmt.Errorf("cannot be negative"))
	}

	p := &c.Retries.Policy
	if p.Strategy, err = dp.GetStringFromSet(
		cfgKeyRetriesPolicyStrategy, []string{RetryPolicyExponential, RetryPolicyConstant}, true,
	); err != nil {
		return err
	}
	if p.Strategy == RetryPolicyConstant {
		if p.ConstantBackoffInterval, err = dp.GetDuration(cfgKeyRetriesPolicyConstantInterval); err != nil {
			return err
		}
		if p.ConstantBackoffInterval < 0 {
			return dp.WrapKeyErr(cfgKeyRetriesPolicyConstantInterval, fmt.Errorf("cannot be negative"))
		}
		return nil
	}
	if p.ExponentialBackoffInitialInterval, err = dp.GetDuration(cfgKeyRetriesPolicyExponentialInitialInterval); err != nil {
		return err
	}
	if p.ExponentialBackoffInitialInterval < 0 {
		return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialInitialInterval, fmt.Errorf("cannot be negative"))
	}
	if p.ExponentialBackoffMultiplier, err = dp.GetFloat64(cfgKeyRetriesPolicyExponentialMultiplier); err != nil {
		return err
	}
	if p.ExponentialBackoffMultiplier <= 1 {
		return dp.WrapKeyErr(cfgKeyRetriesPolicyExponentialMultiplier, fmt.Errorf("must be greater than 1"))
	}
	return nil
}

func (c *Config) setLogger(dp config.DataProvider) error {
	var err error
	if c.Logger.Enabled, err = dp.GetBool(cfgKeyLoggerEnabled); err != nil {
		return err
	}
	if !c.Logger.Enabled {
		return nil
	}
	var mode string
	if mode, err = dp.GetStringFromSet(cfgKeyLoggerMode, []string{
		string(LoggingModeNone), string(LoggingModeAll), string(LoggingModeFailed),
	}, true); err != nil {
		return err
	}
	c.Logger.Mode = LoggingMode(mode)
	if c.Logger.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLoggerSlowRequestThreshold); err != nil {
		return err
	}
	if c.Logger.SlowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLoggerSlowRequestThreshold, fmt.Errorf("cannot be negative"))
	}
	return nil
}
