/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides loggers for tests: a JSON logger writing to any io.Writer
// and a Recorder that keeps entries in memory for assertions.
package logtest
