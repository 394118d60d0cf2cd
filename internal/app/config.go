/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package app

import (
	"fmt"
	"io"
	"os"

	"github.com/predictdash/predictdash/api"
	"github.com/predictdash/predictdash/arbitrage"
	"github.com/predictdash/predictdash/bot"
	"github.com/predictdash/predictdash/config"
	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/httpclient"
	"github.com/predictdash/predictdash/httpserver"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/profserver"
)

// EnvVarsPrefix is the prefix of environment variables overriding configuration keys
// (e.g. PREDICTDASH_DOME_APIKEY for "dome.apiKey").
const EnvVarsPrefix = "PREDICTDASH"

// Plain environment variables honoured when the corresponding key is not configured.
const (
	EnvDomeAPIKey = "DOME_API_KEY"
	EnvPort       = "PORT"
)

// Config aggregates configuration sections of the application.
type Config struct {
	Server     *httpserver.Config
	Log        *log.Config
	Dome       *dome.Config
	DomeClient *httpclient.Config
	API        *api.Config
	Arbitrage  *arbitrage.Config
	Bot        *bot.Config
	ProfServer *profserver.Config
}

// NewConfig creates an empty Config to be filled by a config.Loader.
func NewConfig() *Config {
	return &Config{
		Server:     httpserver.NewConfig(),
		Log:        log.NewConfig(),
		Dome:       dome.NewConfig(),
		DomeClient: httpclient.NewConfigWithKeyPrefix("dome.client"),
		API:        api.NewConfig(),
		Arbitrage:  arbitrage.NewConfig(),
		Bot:        bot.NewConfig(),
		ProfServer: profserver.NewConfig(),
	}
}

func (c *Config) sections() []config.Config {
	return []config.Config{c.Server, c.Log, c.Dome, c.DomeClient, c.API, c.Arbitrage, c.Bot, c.ProfServer}
}

// LoadConfig fills cfg from defaults, the optional reader (YAML) and the environment.
// lookupEnv is used for the DOME_API_KEY and PORT fallbacks, os.LookupEnv if nil.
func LoadConfig(dp config.DataProvider, r io.Reader, lookupEnv func(string) (string, bool)) (*Config, error) {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if r != nil {
		if err := dp.SetFromReader(r, config.DataTypeYAML); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	applyEnvFallbacks(dp, lookupEnv)

	cfg := NewConfig()
	sections := cfg.sections()
	if err := config.NewLoader(dp).Load(sections[0], sections[1:]...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromFile works like LoadConfig but reads values from the YAML file at path.
// An empty path means no file.
func LoadConfigFromFile(path string) (*Config, error) {
	dp := config.NewViperAdapter()
	dp.UseEnvVars(EnvVarsPrefix)
	if path == "" {
		return LoadConfig(dp, nil, nil)
	}
	f, err := os.Open(path) // nolint: gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(dp, f, nil)
}

func applyEnvFallbacks(dp config.DataProvider, lookupEnv func(string) (string, bool)) {
	if key, ok := lookupEnv(EnvDomeAPIKey); ok && key != "" && !dp.IsSet("dome.apiKey") {
		dp.Set("dome.apiKey", key)
	}
	if port, ok := lookupEnv(EnvPort); ok && port != "" && !dp.IsSet("server.address") {
		dp.Set("server.address", ":"+port)
	}
}
