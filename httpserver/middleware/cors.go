/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strings"
)

// CORSOpts represents an options for CORS middleware.
type CORSOpts struct {
	// AllowedOrigins lists origins that may call the API. "*" (default) allows any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Default CORS settings, the dashboard frontend is usually served from another origin.
var (
	DefaultCORSAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	DefaultCORSAllowedHeaders = []string{"Content-Type", HeaderRequestID}
)

type corsHandler struct {
	next           http.Handler
	allowedOrigins map[string]struct{}
	allowAny       bool
	methods        string
	headers        string
}

// CORS is a middleware that sets Access-Control-Allow-* headers and answers preflight requests with 200.
func CORS(opts CORSOpts) func(next http.Handler) http.Handler {
	if len(opts.AllowedMethods) == 0 {
		opts.AllowedMethods = DefaultCORSAllowedMethods
	}
	if len(opts.AllowedHeaders) == 0 {
		opts.AllowedHeaders = DefaultCORSAllowedHeaders
	}
	h := &corsHandler{
		allowedOrigins: make(map[string]struct{}, len(opts.AllowedOrigins)),
		allowAny:       len(opts.AllowedOrigins) == 0,
		methods:        strings.Join(opts.AllowedMethods, ", "),
		headers:        strings.Join(opts.AllowedHeaders, ", "),
	}
	for _, origin := range opts.AllowedOrigins {
		if origin == "*" {
			h.allowAny = true
		}
		h.allowedOrigins[origin] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		handler := *h
		handler.next = next
		return &handler
	}
}

func (h *corsHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	switch {
	case h.allowAny:
		rw.Header().Set("Access-Control-Allow-Origin", "*")
	case origin != "":
		if _, ok := h.allowedOrigins[origin]; ok {
			rw.Header().Set("Access-Control-Allow-Origin", origin)
			rw.Header().Add("Vary", "Origin")
		}
	}
	rw.Header().Set("Access-Control-Allow-Methods", h.methods)
	rw.Header().Set("Access-Control-Allow-Headers", h.headers)
	rw.Header().Set("Access-Control-Expose-Headers", HeaderRequestID)

	if r.Method == http.MethodOptions {
		rw.WriteHeader(http.StatusOK)
		return
	}
	h.next.ServeHTTP(rw, r)
}
