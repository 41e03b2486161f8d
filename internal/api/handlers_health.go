// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/traveal/internal/models"
)

// healthCheckTimeout bounds all dependency checks of one request.
const healthCheckTimeout = 2 * time.Second

// Health reports liveness and dependency status. A failed dependency
// makes the status "degraded" and the response 503 so load balancers can
// route around the instance.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"
	components := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			components[check.Name()] = "unhealthy: " + err.Error()
			status = "degraded"
			continue
		}
		components[check.Name()] = "ok"
	}

	health := models.HealthStatus{
		Status:     status,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Seconds(),
		Components: components,
	}
	if h.activeTimers != nil {
		health.ActiveTimers = h.activeTimers()
	}
	if h.wsHub != nil {
		health.WSConnections = h.wsHub.GetClientCount()
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, r, code, health)
}
