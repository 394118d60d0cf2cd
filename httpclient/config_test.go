/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/predictdash/predictdash/config"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfigWithKeyPrefix("dome.client")
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(``), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		want := NewDefaultConfig()
		want.keyPrefix = "dome.client"
		require.Equal(t, want, cfg)

		bf := cfg.Retries.GetPolicy().NewBackOff()
		require.IsType(t, &backoff.ExponentialBackOff{}, bf)
		require.Equal(t, DefaultExponentialBackoffInitialInterval, bf.(*backoff.ExponentialBackOff).InitialInterval)
	})

	t.Run("custom values under key prefix", func(t *testing.T) {
		yamlData := `
dome:
  client:
    timeout: 5s
    retries:
      enabled: true
      maxAttempts: 4
      policy:
        strategy: constant
        constantBackoffInterval: 250ms
    logger:
      enabled: true
      mode: failed
      slowRequestThreshold: 2s
    metrics:
      enabled: false
    dns:
      servers: 10.0.0.2:53,10.0.0.3:53
      timeout: 1s
`
		cfg := NewConfigWithKeyPrefix("dome.client")
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 5*time.Second, cfg.Timeout)
		require.Equal(t, 4, cfg.Retries.MaxAttempts)
		require.Equal(t, RetryPolicyConstant, cfg.Retries.Policy.Strategy)
		require.Equal(t, 250*time.Millisecond, cfg.Retries.Policy.ConstantBackoffInterval)
		require.Equal(t, LoggingModeFailed, cfg.Logger.Mode)
		require.Equal(t, 2*time.Second, cfg.Logger.SlowRequestThreshold)
		require.False(t, cfg.Metrics.Enabled)
		require.Equal(t, []string{"10.0.0.2:53", "10.0.0.3:53"}, cfg.DNS.Servers)
		require.Equal(t, time.Second, cfg.DNS.Timeout)

		bf := cfg.Retries.GetPolicy().NewBackOff()
		require.Equal(t, 250*time.Millisecond, bf.NextBackOff())
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			yaml    string
			wantErr string
		}{
			{name: "negative timeout", yaml: "timeout: -1s", wantErr: "timeout: cannot be negative"},
			{name: "negative attempts", yaml: "retries:\n  maxAttempts: -1", wantErr: "retries.maxAttempts: cannot be negative"},
			{name: "unknown policy", yaml: "retries:\n  policy:\n    strategy: linear", wantErr: "retries.policy.strategy"},
			{name: "bad multiplier", yaml: "retries:\n  policy:\n    exponentialBackoffMultiplier: 1", wantErr: "must be greater than 1"},
			{name: "unknown logging mode", yaml: "logger:\n  mode: verbose", wantErr: "logger.mode"},
			{name: "dns server without port", yaml: "dns:\n  servers: 10.0.0.2", wantErr: "dns.servers: invalid address"},
			{name: "zero dns timeout", yaml: "dns:\n  timeout: 0s", wantErr: "dns.timeout: must be positive"},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.yaml), config.DataTypeYAML, NewConfig())
				require.ErrorContains(t, err, tt.wantErr)
			})
		}
	})
}
