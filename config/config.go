/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads application settings from YAML/JSON files, .env-provided environment
// variables and defaults into typed configuration sections.
package config

// Config is a configuration section that may be filled by Loader.
// SetProviderDefaults is called for every section before any Set call.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by sections that live under a key prefix (e.g. "dome", "server").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// dataProviderFor returns a data provider scoped to the section's key prefix, if it has one.
func dataProviderFor(cfg Config, dp DataProvider) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
