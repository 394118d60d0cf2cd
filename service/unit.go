/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the backend as a set of units (HTTP server, scheduled workers)
// with a common start/stop lifecycle driven by OS signals.
package service

// Unit is a component of the service with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may return immediately or block for the unit's lifetime.
	// A fatal failure is reported by writing to fatalErr; a successful Start writes nothing
	// and must not use the channel after returning.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus collectors.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
