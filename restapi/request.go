/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"code.cloudfoundry.org/bytefmt"
)

// MalformedRequestError is an error that occurs in case of incorrect request.
type MalformedRequestError struct {
	HTTPStatusCode int
	Message        string
}

// Error returns a string representation of MalformedRequestError.
func (e *MalformedRequestError) Error() string {
	return e.Message
}

func newBadRequestError(format string, args ...interface{}) *MalformedRequestError {
	return &MalformedRequestError{http.StatusBadRequest, fmt.Sprintf(format, args...)}
}

// NewTooLargeMalformedRequestError creates a new MalformedRequestError for case when request body is too large.
func NewTooLargeMalformedRequestError(maxSizeBytes uint64) *MalformedRequestError {
	return &MalformedRequestError{
		http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request body must not be larger than %s.", bytefmt.ByteSize(maxSizeBytes)),
	}
}

// SetRequestMaxBodySize limits the number of bytes that may be read from the request body.
func SetRequestMaxBodySize(w http.ResponseWriter, r *http.Request, maxSizeBytes uint64) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxSizeBytes))
}

// DecodeRequestJSON reads the request body and decodes it as a single JSON value.
// An empty body is a malformed request.
func DecodeRequestJSON(r *http.Request, dst interface{}) error {
	return decodeRequestJSON(r, dst, false)
}

// DecodeOptionalRequestJSON works like DecodeRequestJSON but leaves dst untouched when the body is empty.
func DecodeOptionalRequestJSON(r *http.Request, dst interface{}) error {
	return decodeRequestJSON(r, dst, true)
}

func decodeRequestJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	if reqContentType := r.Header.Get("Content-Type"); reqContentType != "" {
		contentType, _, err := mime.ParseMediaType(reqContentType)
		if err != nil {
			return &MalformedRequestError{
				http.StatusUnsupportedMediaType,
				fmt.Sprintf("failed to parse Content-Type header for request: %s", err),
			}
		}
		if contentType != ContentTypeAppJSON {
			return &MalformedRequestError{
				http.StatusUnsupportedMediaType,
				fmt.Sprintf("Content-Type %q is not supported.", contentType),
			}
		}
	}
	if r.Body == nil || r.Body == http.NoBody {
		if allowEmpty {
			return nil
		}
		return newBadRequestError("Request body must not be empty.")
	}

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var unmarshalTypeErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			if allowEmpty {
				return nil
			}
			return newBadRequestError("Request body must not be empty.")
		case errors.Is(err, io.ErrUnexpectedEOF):
			return newBadRequestError("Request body contains badly-formed JSON.")
		case errors.As(err, &syntaxErr):
			return newBadRequestError("Request body contains badly-formed JSON (at position %d).", syntaxErr.Offset)
		case errors.As(err, &unmarshalTypeErr):
			if unmarshalTypeErr.Field != "" {
				return newBadRequestError("Request body contains an invalid value for the %q field (at position %d).",
					unmarshalTypeErr.Field, unmarshalTypeErr.Offset)
			}
			return newBadRequestError("Request body contains an invalid value of type %q.", unmarshalTypeErr.Value)
		case errors.As(err, &maxBytesErr):
			return NewTooLargeMalformedRequestError(uint64(maxBytesErr.Limit))
		default:
			return err
		}
	}

	if decoder.More() {
		return newBadRequestError("Request body must only contain a single JSON object.")
	}
	return nil
}
