/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/predictdash/predictdash/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// Does JSON marshaling with disabled HTML escaping
func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes()[:buffer.Len()-1], nil
}

// RespondJSON sends response with 200 HTTP status code, does JSON marshaling of data and writes result in response's body.
func RespondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

// RespondCodeAndJSON sends a response with the passed status code and sets the "Content-Type"
// to "application/json" if it's not already set.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}

	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}

	respJSON, err := jsonMarshal(respData)
	if err != nil {
		if logger != nil {
			logger.Error("error while marshaling json for response body", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(statusCode)
	if _, err = rw.Write(respJSON); err != nil && logger != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

// RespondError sets HTTP status code in response and writes error in body in JSON format.
// Also, it logs the message and counts the error by status.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	logAndCollectMetricsForError(httpStatusCode, err, logger)
	RespondCodeAndJSON(rw, httpStatusCode, err, logger)
}

// RespondInternalError sends response with 500 HTTP status code and the request id in body.
func RespondInternalError(rw http.ResponseWriter, requestID string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(requestID), logger)
}

// RespondMalformedRequestError responds with the status and message carried by reqErr.
func RespondMalformedRequestError(rw http.ResponseWriter, reqErr *MalformedRequestError, logger log.FieldLogger) {
	RespondError(rw, reqErr.HTTPStatusCode, NewError(reqErr.Message), logger)
}

// RespondMalformedRequestOrInternalError calls RespondMalformedRequestError (if passed error is *MalformedRequestError)
// or RespondInternalError (in other cases).
func RespondMalformedRequestOrInternalError(rw http.ResponseWriter, requestID string, err error, logger log.FieldLogger) {
	var reqErr *MalformedRequestError
	if errors.As(err, &reqErr) {
		RespondMalformedRequestError(rw, reqErr, logger)
		return
	}
	RespondInternalError(rw, requestID, logger)
}

func logAndCollectMetricsForError(httpStatusCode int, err *Error, logger log.FieldLogger) {
	code := httpCode2ErrorCode(httpStatusCode)
	if logger != nil {
		logger.Warn("error in response",
			log.Int("status", httpStatusCode), log.String("error_code", code), log.String("error_message", err.Message))
	}
	if metricsResponseErrors != nil {
		metricsResponseErrors.With(prometheus.Labels{metricsLabelResponseErrorCode: code}).Inc()
	}
}
