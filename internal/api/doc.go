// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package api provides the HTTP surface of the SOS service.

Every endpoint answers with the models.APIResponse envelope. Successful
calls carry the payload in data; failed calls carry an error object whose
code comes from the error taxonomy:

	VALIDATION_FAILED        400  malformed body, bad coordinates, unsupported alert type
	UNAUTHORIZED             401  no authenticated user
	AUTHENTICATION_FAILED    401  wrong password, or any password on an escalated alert
	NOT_FOUND                404  unknown, foreign, or no longer active resource
	RATE_LIMITED             429  too many requests from one client
	EXTERNAL_SERVICE_FAILED  502  a notification provider failed
	INTERNAL_ERROR           500  anything else

Internal and dependency failures never expose their cause to the client;
the cause is logged with the request ID, which is returned in both the
X-Request-ID header and the envelope.

# Routes

	GET  /api/v1/health
	GET  /metrics
	GET  /api/v1/ws                                   push subscription
	POST /api/v1/sos/profile                          create or update
	GET  /api/v1/sos/profile
	POST /api/v1/sos/contacts
	PUT  /api/v1/sos/settings
	POST /api/v1/sos/monitoring/start
	GET  /api/v1/sos/monitoring/{monitoringID}
	POST /api/v1/sos/monitoring/{monitoringID}/location
	POST /api/v1/sos/monitoring/{monitoringID}/end
	POST /api/v1/sos/alert/trigger
	POST /api/v1/sos/alert/{alertID}/verify           stricter rate limit
	POST /api/v1/sos/alert/{alertID}/cancel
	GET  /api/v1/sos/alerts/active
	POST /api/v1/sos/test/voice

The SOS routes require an authenticated user; see package auth for the
JWT and header modes. Password verification has its own per-client limit
on top of the general one.
*/
package api
