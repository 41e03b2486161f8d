// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package models defines the data shared by every layer of the SOS service.

Records:

  - Profile: a user's SOS configuration, holding both password hashes
  - EmergencyContact: a person reached when an alert is dispatched
  - Monitoring: one route-monitoring session with planned and actual routes
  - Alert: a triggered emergency and its lifecycle status
  - ActionLog: the server-side audit trail of lifecycle steps

Profile and Alert have public views (ProfileView, AlertView) that strip
password hashes, the attempt counter and duress bookkeeping. Handlers only
ever serialize views.

Alert lifecycle:

	triggered ──full password──────────> resolved
	          ──partial password───────> resolved (duress, silent escalation)
	          ──attempts exhausted─────> escalated
	          ──timeout────────────────> escalated
	          ──user cancel────────────> cancelled

Terminal statuses never change again.

Errors:

ValidationError, NotFoundError, AuthenticationError, DependencyFailure and
InternalError each match one sentinel (ErrValidation, ErrNotFound, ...)
through errors.Is. The HTTP layer maps the sentinels onto APIError codes.
*/
package models
