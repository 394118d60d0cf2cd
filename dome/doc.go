/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Package dome is a client of the Dome prediction-market API (Polymarket and Kalshi data).
// Every upstream call goes through a dispatcher so the aggregate call rate stays within the upstream quota,
// and successful responses are kept in a short-TTL cache keyed by the request fingerprint.
package dome
