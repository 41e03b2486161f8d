// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
)

// UserIDHeader carries the caller's user ID in none mode.
const UserIDHeader = "X-User-ID"

// Middleware authenticates requests and stores the user ID in the context.
type Middleware struct {
	jwtManager *JWTManager
	authMode   AuthMode
}

// NewMiddleware creates a new authentication middleware. jwtManager may be
// nil in none mode.
func NewMiddleware(jwtManager *JWTManager, authMode AuthMode) *Middleware {
	if authMode == AuthModeNone {
		logging.Warn().Msg("Authentication disabled: trusting the X-User-ID header. Do not use in production")
	}
	return &Middleware{jwtManager: jwtManager, authMode: authMode}
}

// Mode returns the configured authentication mode.
func (m *Middleware) Mode() AuthMode {
	return m.authMode
}

// Authenticate is middleware that enforces authentication
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == AuthModeNone {
			m.handleHeaderAuth(w, r, next)
			return
		}
		m.handleJWTAuth(w, r, next)
	}
}

func (m *Middleware) handleHeaderAuth(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if userID == "" {
		recordAttempt(m.authMode, "missing")
		writeUnauthorized(w, r, "missing "+UserIDHeader+" header")
		return
	}
	recordAttempt(m.authMode, "success")
	next(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
}

// handleJWTAuth processes JWT Authentication requests
func (m *Middleware) handleJWTAuth(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	token, err := extractBearerToken(r)
	if err != nil {
		recordAttempt(m.authMode, "missing")
		writeUnauthorized(w, r, err.Error())
		return
	}

	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Str("token", logging.MaskToken(token)).
			Msg("Token validation failed")
		recordAttempt(m.authMode, "invalid")
		writeUnauthorized(w, r, "invalid token")
		return
	}

	recordAttempt(m.authMode, "success")
	next(w, r.WithContext(ContextWithUserID(r.Context(), claims.UserID())))
}

// extractBearerToken reads the token from the Authorization header. The
// WebSocket handshake cannot set headers from a browser, so a token query
// parameter is accepted as well.
func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", ErrNoCredentials
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrInvalidCredentials
	}
	return parts[1], nil
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	requestID := logging.RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="traveal"`)
	w.WriteHeader(http.StatusUnauthorized)

	resp := models.APIResponse{
		Success: false,
		Error: &models.APIError{
			Code:      models.ErrCodeUnauthorized,
			Message:   "unauthorized: " + message,
			RequestID: requestID,
		},
		Meta: models.Meta{Timestamp: time.Now().UTC(), RequestID: requestID},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode auth error")
	}
}
