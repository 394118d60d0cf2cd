/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/rs/xid"
)

// HeaderRequestID is the name of HTTP header that carries request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestIDOpts represents an options for RequestID middleware.
type RequestIDOpts struct {
	GenerateID func() string
}

type requestIDHandler struct {
	next http.Handler
	opts RequestIDOpts
}

func newID() string {
	return xid.New().String()
}

// RequestID is a middleware that reads value of X-Request-ID request's HTTP header and generates new one if it's empty.
// The id is put into request's context and returned in the X-Request-ID response header.
// Outbound calls made on behalf of the request carry the same id, and it's reported in 500 error bodies.
func RequestID() func(next http.Handler) http.Handler {
	return RequestIDWithOpts(RequestIDOpts{GenerateID: newID})
}

// RequestIDWithOpts is a more configurable version of RequestID middleware.
func RequestIDWithOpts(opts RequestIDOpts) func(next http.Handler) http.Handler {
	if opts.GenerateID == nil {
		opts.GenerateID = newID
	}
	return func(next http.Handler) http.Handler {
		return &requestIDHandler{next: next, opts: opts}
	}
}

func (h *requestIDHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = h.opts.GenerateID()
	}
	rw.Header().Set(HeaderRequestID, requestID)
	h.next.ServeHTTP(rw, r.WithContext(NewContextWithRequestID(r.Context(), requestID)))
}
