/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

// RequireErrorInRecorder asserts that the recorder holds a JSON `{"error": wantMsg}` body with the given status.
// It returns the decoded body so extra fields (rateLimit, requestId) can be checked by the caller.
func RequireErrorInRecorder(
	t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantMsg string,
) map[string]interface{} {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return requireErrorInResponse(t, resp.Code, resp.Header(), resp.Body, wantHTTPCode, wantMsg)
}

// RequireErrorInResponse does the same as RequireErrorInRecorder for a real http.Response.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantMsg string) map[string]interface{} {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return requireErrorInResponse(t, resp.StatusCode, resp.Header, resp.Body, wantHTTPCode, wantMsg)
}

func requireErrorInResponse(
	t require.TestingT, code int, header http.Header, body io.Reader, wantHTTPCode int, wantMsg string,
) map[string]interface{} {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, code)
	require.Equal(t, contentTypeAppJSON, header.Get("Content-Type"))
	var respData map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&respData))
	require.Equal(t, wantMsg, respData["error"])
	return respData
}

// RequireJSONInRecorder asserts that the recorder holds a JSON body equal to wantData.
// dstData must be a pointer of the same type as wantData.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantData, dstData interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dstData))
	require.Equal(t, wantData, dstData)
}

// DecodeJSONInRecorder asserts the status code and decodes the JSON body into a generic map.
func DecodeJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int) map[string]interface{} {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, resp.Code, "body: %s", resp.Body.String())
	require.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type"))
	var respData map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&respData))
	return respData
}

// RequireEmptyBodyInRecorder asserts that the recorder body is empty.
func RequireEmptyBodyInRecorder(t require.TestingT, resp *httptest.ResponseRecorder) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, 0, resp.Body.Len())
}
