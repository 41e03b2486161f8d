// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Example successful response:
//
//	{
//	  "success": true,
//	  "data": {"alert_id": "…", "verified": true, "status": "resolved"},
//	  "meta": {"timestamp": "2026-03-01T12:00:00Z", "request_id": "…"}
//	}
//
// Example error response:
//
//	{
//	  "success": false,
//	  "error": {
//	    "code": "AUTHENTICATION_FAILED",
//	    "message": "incorrect password",
//	    "request_id": "…"
//	  },
//	  "meta": {"timestamp": "2026-03-01T12:00:00Z", "request_id": "…"}
//	}
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// Meta carries response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is the error body of a failed request. Message is safe to show
// to end users; internal causes are only logged.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Error codes returned in APIError.Code.
const (
	ErrCodeValidation     = "VALIDATION_FAILED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeAuthentication = "AUTHENTICATION_FAILED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeExternal       = "EXTERNAL_SERVICE_FAILED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	Uptime        float64           `json:"uptime_seconds"`
	Components    map[string]string `json:"components,omitempty"`
	ActiveTimers  int               `json:"active_escalation_timers"`
	WSConnections int               `json:"websocket_clients"`
}
