/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertions shared by the HTTP, metrics and service tests.
package testutil

type tHelper interface {
	Helper()
}
