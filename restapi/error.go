/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"
)

// Error messages.
// We are using "var" here because some deployments may want different wording.
var (
	ErrMessageInternal         = "Internal server error"
	ErrMessageNotFound         = "Not found"
	ErrMessageMethodNotAllowed = "Method not allowed"
)

// Error is the body of every error response: {"error": "<message>", ...extra fields}.
type Error struct {
	Message string
	Extra   map[string]interface{}
}

// NewError creates a new Error with the passed message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// NewInternalError creates an internal error tagged with the id of the failed request.
func NewInternalError(requestID string) *Error {
	err := NewError(ErrMessageInternal)
	if requestID != "" {
		err.AddField("requestId", requestID)
	}
	return err
}

// AddField adds an extra top-level field to the error body.
func (e *Error) AddField(field string, value interface{}) *Error {
	if e.Extra == nil {
		e.Extra = make(map[string]interface{})
	}
	e.Extra[field] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// MarshalJSON flattens extra fields next to "error".
func (e *Error) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{}, len(e.Extra)+1)
	for k, v := range e.Extra {
		body[k] = v
	}
	body["error"] = e.Message
	return json.Marshal(body)
}

// httpCode2ErrorCode converts a status code to a camel-cased label ("Too Many Requests" -> "tooManyRequests").
func httpCode2ErrorCode(httpCode int) string {
	if httpCode == http.StatusInternalServerError {
		return "internalError"
	}
	var builder strings.Builder
	capitalizeNext := false
	for _, char := range http.StatusText(httpCode) {
		if unicode.IsSpace(char) {
			capitalizeNext = true
			continue
		}
		if capitalizeNext {
			builder.WriteRune(unicode.ToTitle(char))
			capitalizeNext = false
			continue
		}
		builder.WriteRune(unicode.ToLower(char))
	}
	return builder.String()
}
