/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package middleware contains HTTP middlewares used by the dashboard API server:
// request id propagation, request/response logging, panic recovery, Prometheus metrics,
// request body limiting, per-client rate limiting and CORS.
package middleware
