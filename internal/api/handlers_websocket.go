// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
	ws "github.com/tomtom215/traveal/internal/websocket"
)

// getUpgrader creates a WebSocket upgrader with origin checking and timeouts.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts native clients, which send no Origin, and
// browsers from a configured CORS origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Ctx(r.Context()).Warn().
		Str("origin", sanitizeLogValue(origin)).
		Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket subscribes the caller to in-app push frames: alert requests
// from users who list them as a contact and their own alert updates.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.wsHub == nil {
		writeError(w, r, http.StatusServiceUnavailable, &models.APIError{
			Code:    models.ErrCodeExternal,
			Message: "push service unavailable",
		})
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn, uid)
	select {
	case h.wsHub.Register <- client:
		client.Start()
	case <-r.Context().Done():
		_ = conn.Close()
	}
}
