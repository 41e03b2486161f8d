// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package auth authenticates API callers.

Two modes are supported (security.auth_mode):

  - jwt (default): HS256 bearer tokens whose subject is the user ID.
    The token is read from the Authorization header, or from the token
    query parameter for WebSocket handshakes.
  - none: the X-User-ID header is trusted as is. A warning is logged at
    startup; use this only for local development.

Handlers read the caller with UserIDFromContext. Failures are answered
with a 401 in the standard response envelope.

Usage:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtManager, auth.AuthModeJWT)
	http.HandleFunc("/api/v1/sos/profile", mw.Authenticate(handler))
*/
package auth
