/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package cache provides an in-memory LRU store with lazily expiring entries
// and a response cache built on top of it.
// Upstream payloads are keyed by a request fingerprint (endpoint + query parameters),
// so repeated identical queries are served without going through the outbound dispatcher.
package cache
