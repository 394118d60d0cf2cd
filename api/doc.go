/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Package api implements the JSON endpoints consumed by the dashboard frontend.
// Handlers hold no global state: the Dome client, quota tracker, bot state and arbitrage checker
// are injected into Handler once at startup.
package api
