/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides per-key limiters for inbound requests.
// Keys usually identify a client (e.g. its IP address), so a single noisy dashboard
// cannot flood the outbound dispatcher queue.
//
// Two algorithms are supported:
//   - leaky bucket (GCRA) backed by an in-memory throttled store;
//   - sliding window with per-key windows kept in an LRU store.
package ratelimit
