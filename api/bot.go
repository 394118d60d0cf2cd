/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

package api

import (
	"net/http"

	"github.com/predictdash/predictdash/httpserver/middleware"
	"github.com/predictdash/predictdash/log"
	"github.com/predictdash/predictdash/restapi"
)

type startBotRequest struct {
	Strategy string `json:"strategy"`
}

type botMessageResponse struct {
	Message  string `json:"message"`
	Strategy string `json:"strategy,omitempty"`
}

// StartBot handles POST /api/bot/start. The body is optional, the default strategy is used without it.
func (h *Handler) StartBot(rw http.ResponseWriter, r *http.Request) {
	logger := h.getLogger(r)
	var req startBotRequest
	if err := restapi.DecodeOptionalRequestJSON(r, &req); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, middleware.GetRequestIDFromContext(r.Context()), err, logger)
		return
	}
	strategy := h.deps.Bot.Start(req.Strategy)
	logger.Info("auto-bot started", log.String("strategy", strategy))
	restapi.RespondJSON(rw, botMessageResponse{Message: "Bot started", Strategy: strategy}, logger)
}

// StopBot handles POST /api/bot/stop.
func (h *Handler) StopBot(rw http.ResponseWriter, r *http.Request) {
	logger := h.getLogger(r)
	h.deps.Bot.Stop()
	logger.Info("auto-bot stopped")
	restapi.RespondJSON(rw, botMessageResponse{Message: "Bot stopped"}, logger)
}

// GetBotStatus handles GET /api/bot/status.
func (h *Handler) GetBotStatus(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, h.deps.Bot.Status(), h.getLogger(r))
}
