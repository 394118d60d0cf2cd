/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RoutePatternGetterFunc is a function for getting route pattern from the request. Used in multiple middlewares.
type RoutePatternGetterFunc func(r *http.Request) string

// GetChiRoutePattern returns the pattern of the chi route matched for the request.
// Since chi fills the pattern while routing, it's complete only after the handler is called.
func GetChiRoutePattern(r *http.Request) string {
	chiCtx := chi.RouteContext(r.Context())
	if chiCtx == nil {
		return ""
	}
	return chiCtx.RoutePattern()
}

// WrapResponseWriterIfNeeded wraps an http.ResponseWriter (if it is not already wrapped), returning a proxy
// that allows reading the status code and the number of written bytes.
func WrapResponseWriterIfNeeded(rw http.ResponseWriter, protoMajor int) chimw.WrapResponseWriter {
	if wrw, ok := rw.(chimw.WrapResponseWriter); ok {
		return wrw
	}
	return chimw.NewWrapResponseWriter(rw, protoMajor)
}

func statusOrOK(wrw chimw.WrapResponseWriter) int {
	if status := wrw.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
