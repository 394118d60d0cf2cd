/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"time"

	"github.com/predictdash/predictdash/config"
	"github.com/predictdash/predictdash/internal/ratelimit"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyServerAddress                 = "address"
	cfgKeyServerTimeoutsWrite           = "timeouts.write"
	cfgKeyServerTimeoutsRead            = "timeouts.read"
	cfgKeyServerTimeoutsReadHeader      = "timeouts.readHeader"
	cfgKeyServerTimeoutsIdle            = "timeouts.idle"
	cfgKeyServerTimeoutsShutdown        = "timeouts.shutdown"
	cfgKeyServerLimitsMaxBodySize       = "limits.maxBodySize"
	cfgKeyServerRateLimitEnabled        = "limits.rateLimit.enabled"
	cfgKeyServerRateLimitCount          = "limits.rateLimit.count"
	cfgKeyServerRateLimitPeriod         = "limits.rateLimit.period"
	cfgKeyServerRateLimitBurst          = "limits.rateLimit.burst"
	cfgKeyServerRateLimitAlg            = "limits.rateLimit.alg"
	cfgKeyServerLogRequestStart         = "log.requestStart"
	cfgKeyServerLogExcludedEndpoints    = "log.excludedEndpoints"
	cfgKeyServerLogSecretQueryParams    = "log.secretQueryParams" // nolint:gosec // false positive
	cfgKeyServerLogSlowRequestThreshold = "log.slowRequestThreshold"
)

const (
	defaultServerAddress            = ":5000"
	defaultServerTimeoutsWrite      = 2 * time.Minute
	defaultServerTimeoutsRead       = time.Second * 15
	defaultServerTimeoutsReadHeader = time.Second * 10
	defaultServerTimeoutsIdle       = time.Minute
	defaultServerTimeoutsShutdown   = time.Second * 5
	defaultServerMaxBodySize        = config.ByteSize(1 << 20)
	defaultRateLimitCount           = 120
	defaultRateLimitPeriod          = time.Minute
	defaultRateLimitBurst           = 20
	defaultSlowRequestThreshold     = 5 * time.Second
)

// Config represents a set of configuration parameters for HTTPServer.
type Config struct {
	Address  string
	Timeouts TimeoutsConfig
	Limits   LimitsConfig
	Log      LogConfig

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config with a key prefix.
// This prefix will be used by config.Loader.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		keyPrefix: cfgDefaultKeyPrefix,
		Address:   defaultServerAddress,
		Timeouts: TimeoutsConfig{
			Write:      defaultServerTimeoutsWrite,
			Read:       defaultServerTimeoutsRead,
			ReadHeader: defaultServerTimeoutsReadHeader,
			Idle:       defaultServerTimeoutsIdle,
			Shutdown:   defaultServerTimeoutsShutdown,
		},
		Limits: LimitsConfig{
			MaxBodySizeBytes: defaultServerMaxBodySize,
			RateLimit: RateLimitConfig{
				Rate:  ratelimit.Rate{Count: defaultRateLimitCount, Duration: defaultRateLimitPeriod},
				Burst: defaultRateLimitBurst,
				Alg:   ratelimit.AlgLeakyBucket,
			},
		},
		Log: LogConfig{
			SlowRequestThreshold: defaultSlowRequestThreshold,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTPServer in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyServerAddress, defaultServerAddress)

	dp.SetDefault(cfgKeyServerTimeoutsWrite, defaultServerTimeoutsWrite)
	dp.SetDefault(cfgKeyServerTimeoutsRead, defaultServerTimeoutsRead)
	dp.SetDefault(cfgKeyServerTimeoutsReadHeader, defaultServerTimeoutsReadHeader)
	dp.SetDefault(cfgKeyServerTimeoutsIdle, defaultServerTimeoutsIdle)
	dp.SetDefault(cfgKeyServerTimeoutsShutdown, defaultServerTimeoutsShutdown)

	dp.SetDefault(cfgKeyServerLimitsMaxBodySize, defaultServerMaxBodySize.String())
	dp.SetDefault(cfgKeyServerRateLimitEnabled, false)
	dp.SetDefault(cfgKeyServerRateLimitCount, defaultRateLimitCount)
	dp.SetDefault(cfgKeyServerRateLimitPeriod, defaultRateLimitPeriod)
	dp.SetDefault(cfgKeyServerRateLimitBurst, defaultRateLimitBurst)
	dp.SetDefault(cfgKeyServerRateLimitAlg, string(ratelimit.AlgLeakyBucket))

	dp.SetDefault(cfgKeyServerLogRequestStart, false)
	dp.SetDefault(cfgKeyServerLogSlowRequestThreshold, defaultSlowRequestThreshold)
}

// Set sets HTTPServer configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyServerAddress, fmt.Errorf("cannot be empty"))
	}

	if err = c.Timeouts.Set(dp); err != nil {
		return err
	}
	if err = c.Limits.Set(dp); err != nil {
		return err
	}
	return c.Log.Set(dp)
}

// TimeoutsConfig represents a set of configuration parameters for HTTPServer relating to timeouts.
type TimeoutsConfig struct {
	Write      time.Duration
	Read       time.Duration
	ReadHeader time.Duration
	Idle       time.Duration
	Shutdown   time.Duration
}

// Set sets timeout server configuration values from config.DataProvider.
func (t *TimeoutsConfig) Set(dp config.DataProvider) error {
	for _, f := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyServerTimeoutsWrite, &t.Write},
		{cfgKeyServerTimeoutsRead, &t.Read},
		{cfgKeyServerTimeoutsReadHeader, &t.ReadHeader},
		{cfgKeyServerTimeoutsIdle, &t.Idle},
		{cfgKeyServerTimeoutsShutdown, &t.Shutdown},
	} {
		dur, err := dp.GetDuration(f.key)
		if err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(f.key, fmt.Errorf("cannot be negative"))
		}
		*f.dst = dur
	}
	return nil
}

// LimitsConfig represents a set of configuration parameters for HTTPServer relating to limits.
type LimitsConfig struct {
	// MaxBodySizeBytes is the maximum size of the request body in bytes. Zero disables the check.
	MaxBodySizeBytes config.ByteSize

	// RateLimit throttles /api requests per client IP. Every cache miss ends up in the outbound
	// queue, so this bounds how fast a single client can grow it.
	RateLimit RateLimitConfig
}

// RateLimitConfig represents inbound rate limiting parameters.
type RateLimitConfig struct {
	Enabled bool
	Rate    ratelimit.Rate
	Burst   int
	Alg     ratelimit.Alg
}

// Set sets limit server configuration values from config.DataProvider.
func (l *LimitsConfig) Set(dp config.DataProvider) error {
	var err error

	if l.MaxBodySizeBytes, err = dp.GetByteSize(cfgKeyServerLimitsMaxBodySize); err != nil {
		return err
	}

	rl := &l.RateLimit
	if rl.Enabled, err = dp.GetBool(cfgKeyServerRateLimitEnabled); err != nil {
		return err
	}
	if rl.Rate.Count, err = dp.GetInt(cfgKeyServerRateLimitCount); err != nil {
		return err
	}
	if rl.Rate.Duration, err = dp.GetDuration(cfgKeyServerRateLimitPeriod); err != nil {
		return err
	}
	if rl.Burst, err = dp.GetInt(cfgKeyServerRateLimitBurst); err != nil {
		return err
	}
	var alg string
	algs := []string{string(ratelimit.AlgLeakyBucket), string(ratelimit.AlgSlidingWindow)}
	if alg, err = dp.GetStringFromSet(cfgKeyServerRateLimitAlg, algs, true); err != nil {
		return err
	}
	rl.Alg = ratelimit.Alg(alg)

	if rl.Enabled {
		if rl.Rate.Count <= 0 {
			return dp.WrapKeyErr(cfgKeyServerRateLimitCount, fmt.Errorf("must be positive"))
		}
		if rl.Rate.Duration <= 0 {
			return dp.WrapKeyErr(cfgKeyServerRateLimitPeriod, fmt.Errorf("must be positive"))
		}
		if rl.Burst < 0 {
			return dp.WrapKeyErr(cfgKeyServerRateLimitBurst, fmt.Errorf("cannot be negative"))
		}
	}
	return nil
}

// LogConfig represents a set of configuration parameters for HTTPServer relating to logging.
type LogConfig struct {
	RequestStart         bool
	ExcludedEndpoints    []string
	SecretQueryParams    []string
	SlowRequestThreshold time.Duration
}

// Set sets log server configuration values from config.DataProvider.
func (l *LogConfig) Set(dp config.DataProvider) error {
	var err error

	if l.RequestStart, err = dp.GetBool(cfgKeyServerLogRequestStart); err != nil {
		return err
	}
	if l.ExcludedEndpoints, err = dp.GetStringSlice(cfgKeyServerLogExcludedEndpoints); err != nil {
		return err
	}
	if l.SecretQueryParams, err = dp.GetStringSlice(cfgKeyServerLogSecretQueryParams); err != nil {
		return err
	}
	if l.SlowRequestThreshold, err = dp.GetDuration(cfgKeyServerLogSlowRequestThreshold); err != nil {
		return err
	}
	return nil
}
