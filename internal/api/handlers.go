// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/traveal/internal/auth"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/sos"
	ws "github.com/tomtom215/traveal/internal/websocket"
)

// SOSService is the orchestrator surface the handlers call.
type SOSService interface {
	UpsertProfile(ctx context.Context, userID string, in sos.ProfileInput) (models.ProfileView, error)
	GetProfile(ctx context.Context, userID string) (models.ProfileView, error)
	AddContact(ctx context.Context, userID string, in sos.ContactInput) (models.EmergencyContact, error)
	UpdateSettings(ctx context.Context, userID string, in sos.Settings) (models.ProfileView, error)

	StartMonitoring(ctx context.Context, userID string, in sos.MonitoringInput) (*models.Monitoring, error)
	GetMonitoring(ctx context.Context, userID, monitoringID string) (*models.Monitoring, error)
	UpdateLocationAndCheckDeviation(ctx context.Context, userID, monitoringID string, loc models.Location) (sos.LocationResult, error)
	EndMonitoring(ctx context.Context, userID, monitoringID string) (bool, error)

	TriggerAlert(ctx context.Context, userID string, in sos.TriggerInput) (models.AlertView, error)
	VerifyPassword(ctx context.Context, userID, alertID, password string) (models.VerificationResult, error)
	CancelAlert(ctx context.Context, userID, alertID string) (models.AlertView, error)
	ListActiveAlerts(ctx context.Context, userID string) ([]models.AlertView, error)
	VoiceScript(ctx context.Context, userID string, in sos.VoiceInput) (sos.VoiceScript, error)
}

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	svc          SOSService
	wsHub        *ws.Hub
	checks       []HealthChecker
	corsOrigins  []string
	version      string
	startTime    time.Time
	activeTimers func() int
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithHealthChecks adds dependency checks to the health endpoint.
func WithHealthChecks(checks ...HealthChecker) HandlerOption {
	return func(h *Handler) {
		h.checks = append(h.checks, checks...)
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) {
		h.version = version
	}
}

// WithTimerCount reports pending escalation timers on the health endpoint.
func WithTimerCount(fn func() int) HandlerOption {
	return func(h *Handler) {
		h.activeTimers = fn
	}
}

// NewHandler creates the API handlers. wsHub may be nil, in which case the
// WebSocket endpoint answers 503.
func NewHandler(svc SOSService, wsHub *ws.Hub, corsOrigins []string, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:         svc,
		wsHub:       wsHub,
		corsOrigins: corsOrigins,
		version:     "dev",
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// userID returns the authenticated caller. The auth middleware guarantees
// it for every /api/v1/sos route.
func userID(r *http.Request) (string, bool) {
	return auth.UserIDFromContext(r.Context())
}

// requireUser writes a 401 when the request carries no user.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := userID(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, &models.APIError{
			Code:    models.ErrCodeUnauthorized,
			Message: "unauthorized: no authenticated user",
		})
	}
	return id, ok
}
