// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package sos orchestrates the SOS route-safety workflow.

Service is the only component the HTTP layer calls. It ties together:

  - route.Monitor: location updates and the deviation flag
  - alert.Machine: the alert lifecycle and password verification
  - notify.Dispatcher: contact fan-out, status updates, authority reports
  - events.Bus: the server-side action log
  - Scheduler: one escalation timer per triggered alert

# Deviation alerts

A route deviation alert is raised on the on-route to off-route edge of the
monitor's deviation flag, and contacts are dispatched immediately. Staying
off route does not raise again. Returning on route re-arms the edge, but no
new alert is raised while an earlier alert for the same session is still
triggered.

# Verification

The full password and the partial (duress) password produce the same
response: verified, status resolved. A duress match additionally reports
the alert to the authorities and tells contacts it escalated, after the
response has been returned. Wrong passwords and escalated alerts produce
the same AuthenticationError. Every verification is padded to a latency
floor so response timing does not reveal the branch taken.

# Escalation

An alert still triggered when its timer fires, or whose attempts run out,
escalates: its monitoring session ends, contacts are dispatched (or sent
an escalated status update if they were already told) and the authorities
receive a report. Timers are cancelled on every terminal transition, and a
timer that loses the race to a verification does nothing.
*/
package sos
