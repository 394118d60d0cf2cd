/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package dome

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when the upstream answers 2xx with a body that is not valid JSON.
var ErrMalformedResponse = errors.New("upstream response is not valid JSON")

// UpstreamError is returned when the Dome API responds with a non-2xx status.
type UpstreamError struct {
	Path       string
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("dome api %s responded with status %d", e.Path, e.StatusCode)
}

// IsStatus reports whether err is an UpstreamError with the given status code.
func IsStatus(err error, statusCode int) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr) && upstreamErr.StatusCode == statusCode
}

// IsNotFound reports whether the upstream responded with 404.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}
