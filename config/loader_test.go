/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testUpstreamConfig struct {
	BaseURL  string
	MinDelay time.Duration
}

func (c *testUpstreamConfig) KeyPrefix() string { return "upstream" }

func (c *testUpstreamConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("baseURL", "https://api.domeapi.io/v1")
	dp.SetDefault("minDelay", "1100ms")
}

func (c *testUpstreamConfig) Set(dp DataProvider) error {
	var err error
	if c.BaseURL, err = dp.GetString("baseURL"); err != nil {
		return err
	}
	c.MinDelay, err = dp.GetDuration("minDelay")
	return err
}

type testServerConfig struct {
	Address string
}

func (c *testServerConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("server.address", ":5000")
}

func (c *testServerConfig) Set(dp DataProvider) error {
	var err error
	c.Address, err = dp.GetString("server.address")
	return err
}

const testUpstreamConfigYAML = `
upstream:
  baseURL: http://localhost:9999
  minDelay: 50ms
server:
  address: ":8081"
`

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		upstreamCfg, serverCfg := &testUpstreamConfig{}, &testServerConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, upstreamCfg, serverCfg)
		require.NoError(t, err)
		require.Equal(t, "https://api.domeapi.io/v1", upstreamCfg.BaseURL)
		require.Equal(t, 1100*time.Millisecond, upstreamCfg.MinDelay)
		require.Equal(t, ":5000", serverCfg.Address)
	})

	t.Run("yaml with key prefix", func(t *testing.T) {
		upstreamCfg, serverCfg := &testUpstreamConfig{}, &testServerConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(testUpstreamConfigYAML), DataTypeYAML, upstreamCfg, serverCfg)
		require.NoError(t, err)
		require.Equal(t, "http://localhost:9999", upstreamCfg.BaseURL)
		require.Equal(t, 50*time.Millisecond, upstreamCfg.MinDelay)
		require.Equal(t, ":8081", serverCfg.Address)
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(fname, []byte(testUpstreamConfigYAML), 0o600))

	upstreamCfg := &testUpstreamConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(fname, DataTypeYAML, upstreamCfg))
	require.Equal(t, "http://localhost:9999", upstreamCfg.BaseURL)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"), DataTypeYAML, upstreamCfg)
	require.Error(t, err)
}

func TestLoader_Load_EnvVars(t *testing.T) {
	t.Setenv("TESTAPP_UPSTREAM_MINDELAY", "2s")

	upstreamCfg := &testUpstreamConfig{}
	require.NoError(t, NewDefaultLoader("testapp").Load(upstreamCfg))
	require.Equal(t, 2*time.Second, upstreamCfg.MinDelay)
	require.Equal(t, "https://api.domeapi.io/v1", upstreamCfg.BaseURL)
}
