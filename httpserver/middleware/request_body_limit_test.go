/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predictdash/predictdash/restapi"
	"github.com/predictdash/predictdash/testutil"
)

func TestRequestBodyLimit(t *testing.T) {
	const limit = 32

	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var body struct {
			Strategy string `json:"strategy"`
		}
		if err := restapi.DecodeRequestJSON(r, &body); err != nil {
			restapi.RespondMalformedRequestOrInternalError(rw, "", err, nil)
			return
		}
		restapi.RespondJSON(rw, body, nil)
	})

	t.Run("small body", func(t *testing.T) {
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/bot/start", strings.NewReader(`{"strategy":"momentum"}`))
		RequestBodyLimit(limit)(next).ServeHTTP(resp, req)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("content length exceeds the limit", func(t *testing.T) {
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/bot/start", strings.NewReader(`{"strategy":"`+strings.Repeat("a", limit)+`"}`))
		RequestBodyLimit(limit)(next).ServeHTTP(resp, req)
		testutil.RequireErrorInRecorder(t, resp, http.StatusRequestEntityTooLarge, "Request body must not be larger than 32B.")
	})

	t.Run("actual body exceeds the limit", func(t *testing.T) {
		resp := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/bot/start", strings.NewReader(`{"strategy":"`+strings.Repeat("a", limit)+`"}`))
		req.ContentLength = -1
		RequestBodyLimit(limit)(next).ServeHTTP(resp, req)
		require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
	})
}
