/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dome

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predictdash/predictdash/cache"
	"github.com/predictdash/predictdash/config"
	"github.com/predictdash/predictdash/dispatcher"
)

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(``), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, DefaultBaseURL, cfg.BaseURL)
		require.Empty(t, cfg.APIKey)
		require.Equal(t, dispatcher.DefaultMinDelay, cfg.MinDelay)
		require.Equal(t, cache.DefaultResponseTTL, cfg.CacheTTL)
		require.Zero(t, cfg.CacheMaxEntries)
	})

	t.Run("custom values", func(t *testing.T) {
		yamlData := `
dome:
  baseURL: http://localhost:8081/v1
  apiKey: secret-key
  minDelay: 2s
  cacheTTL: 1m
  cacheMaxEntries: 500
`
		cfg := NewConfig()
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(yamlData), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, "http://localhost:8081/v1", cfg.BaseURL)
		require.Equal(t, "secret-key", cfg.APIKey)
		require.Equal(t, 2*time.Second, cfg.MinDelay)
		require.Equal(t, time.Minute, cfg.CacheTTL)
		require.Equal(t, 500, cfg.CacheMaxEntries)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name    string
			yaml    string
			wantErr string
		}{
			{name: "relative base url", yaml: "baseURL: /v1", wantErr: "baseURL"},
			{name: "non-http base url", yaml: "baseURL: ftp://example.com", wantErr: "must be an absolute http(s) URL"},
			{name: "zero min delay", yaml: "minDelay: 0s", wantErr: "minDelay: must be positive"},
			{name: "negative ttl", yaml: "cacheTTL: -1s", wantErr: "cacheTTL: cannot be negative"},
			{name: "negative max entries", yaml: "cacheMaxEntries: -5", wantErr: "cacheMaxEntries: cannot be negative"},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				cfg := NewConfigWithKeyPrefix("")
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.yaml), config.DataTypeYAML, cfg)
				require.ErrorContains(t, err, tt.wantErr)
			})
		}
	})
}
