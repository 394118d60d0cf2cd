/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var gotRequestID string
	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotRequestID = GetRequestIDFromContext(r.Context())
	})

	t.Run("generated if missing", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RequestID()(next).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/markets", nil))
		require.NotEmpty(t, gotRequestID)
		require.Len(t, gotRequestID, 20) // xid string length
		require.Equal(t, gotRequestID, resp.Header().Get(HeaderRequestID))
	})

	t.Run("taken from request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
		req.Header.Set(HeaderRequestID, "dashboard-123")
		resp := httptest.NewRecorder()
		RequestIDWithOpts(RequestIDOpts{GenerateID: func() string { return "unused" }})(next).ServeHTTP(resp, req)
		require.Equal(t, "dashboard-123", gotRequestID)
		require.Equal(t, "dashboard-123", resp.Header().Get(HeaderRequestID))
	})
}
