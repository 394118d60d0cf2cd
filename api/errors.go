/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/predictdash/predictdash/dome"
	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/restapi"
)

// Error messages for failures that are not specific to an endpoint.
const (
	ErrMessageRateLimited         = "Rate limit exceeded"
	ErrMessageUpstreamTimeout     = "Upstream API timed out"
	ErrMessageUpstreamUnavailable = "Upstream API unavailable"
)

// statusClientClosedRequest is used when the client went away before the response was ready.
const statusClientClosedRequest = 499

// respondError converts err into a JSON error response.
// msg is used for failures that are attributed to the endpoint itself (auth, not found, unknown).
func (h *Handler) respondError(rw http.ResponseWriter, r *http.Request, err error, msg string) {
	logger := h.getLogger(r)

	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logger.Warn("client closed request before upstream call completed", log.Error(err))
		rw.WriteHeader(statusClientClosedRequest)
		return
	}

	var upstreamErr *dome.UpstreamError
	if errors.As(err, &upstreamErr) {
		switch upstreamErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			logger.Error("dome api rejected credentials", log.Error(err))
			restapi.RespondError(rw, upstreamErr.StatusCode, withDetails(restapi.NewError(msg), upstreamErr.Body), logger)
			return
		case http.StatusTooManyRequests:
			apiErr := restapi.NewError(ErrMessageRateLimited).AddField("rateLimit", h.deps.Quota.Snapshot())
			restapi.RespondError(rw, http.StatusTooManyRequests, apiErr, logger)
			return
		case http.StatusNotFound:
			restapi.RespondError(rw, http.StatusNotFound, restapi.NewError(msg), logger)
			return
		}
	}

	if isTimeout(err) {
		logger.Error("dome api call timed out", log.Error(err))
		restapi.RespondError(rw, http.StatusGatewayTimeout, restapi.NewError(ErrMessageUpstreamTimeout), logger)
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		logger.Error("dome api is unreachable", log.Error(err))
		restapi.RespondError(rw, http.StatusServiceUnavailable, restapi.NewError(ErrMessageUpstreamUnavailable), logger)
		return
	}

	logger.Error(msg, log.Error(err))
	apiErr := restapi.NewInternalError(middleware.GetRequestIDFromContext(r.Context()))
	apiErr.Message = msg
	restapi.RespondError(rw, http.StatusInternalServerError, apiErr, logger)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func withDetails(apiErr *restapi.Error, body []byte) *restapi.Error {
	if len(body) == 0 {
		return apiErr
	}
	if json.Valid(body) {
		return apiErr.AddField("details", json.RawMessage(body))
	}
	return apiErr.AddField("details", string(body))
}
