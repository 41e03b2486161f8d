// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/traveal/internal/models"
)

// UpsertProfile creates or updates the caller's SOS profile.
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.svc.UpsertProfile(r.Context(), uid, req.toInput())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}

// GetProfile returns the caller's profile without password hashes.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetProfile(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}

// AddContact appends an emergency contact.
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	contact, err := h.svc.AddContact(r.Context(), uid, req.toInput())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, contact)
}

// UpdateSettings changes profile flags.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.svc.UpdateSettings(r.Context(), uid, req.toInput())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}

// StartMonitoring opens a route monitoring session.
func (h *Handler) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req startMonitoringRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	m, err := h.svc.StartMonitoring(r.Context(), uid, req.toInput())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, m)
}

// GetMonitoring returns one of the caller's sessions.
func (h *Handler) GetMonitoring(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	m, err := h.svc.GetMonitoring(r.Context(), uid, chi.URLParam(r, "monitoringID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, m)
}

// UpdateLocation records a location and reports the deviation check. The
// response carries the alert when this update raised one.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req locationUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.svc.UpdateLocationAndCheckDeviation(r.Context(), uid, chi.URLParam(r, "monitoringID"), req.toModel())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, res)
}

// EndMonitoring ends a session. Ending an ended session reports
// {"ended": false}.
func (h *Handler) EndMonitoring(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	ended, err := h.svc.EndMonitoring(r.Context(), uid, chi.URLParam(r, "monitoringID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, endMonitoringResponse{Ended: ended})
}

// TriggerAlert raises a manual, panic or tamper alert.
func (h *Handler) TriggerAlert(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req triggerAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	a, err := h.svc.TriggerAlert(r.Context(), uid, req.toInput())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, a)
}

// VerifyPassword checks the password for a triggered alert. The full and
// duress passwords produce byte-identical responses.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req verifyPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.svc.VerifyPassword(r.Context(), uid, chi.URLParam(r, "alertID"), req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, res)
}

// CancelAlert cancels a triggered alert.
func (h *Handler) CancelAlert(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	a, err := h.svc.CancelAlert(r.Context(), uid, chi.URLParam(r, "alertID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a)
}

// ListActiveAlerts returns the caller's triggered alerts, newest first.
func (h *Handler) ListActiveAlerts(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	alerts, err := h.svc.ListActiveAlerts(r.Context(), uid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []models.AlertView{}
	}
	respondJSON(w, r, http.StatusOK, alerts)
}

// TestVoice returns the voice check-in script. Without an alert ID it is
// a test playback.
func (h *Handler) TestVoice(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req voiceScriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	script, err := h.svc.VoiceScript(r.Context(), uid, req.toInput())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, script)
}
