/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Package arbitrage estimates cross-platform (Polymarket vs Kalshi) and intra-Polymarket arbitrage.
// The estimates are illustrative: depending on configuration, prices are either simulated
// or taken from the last known upstream prices, and no order book depth is considered.
package arbitrage
