// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package alert implements the SOS alert lifecycle.

# States

	triggered ──► resolved   (full password, or duress password)
	          ├─► escalated  (timeout, or attempts exhausted)
	          └─► cancelled  (false alarm)

No transition leaves a terminal state.

# Password Verification

Every verification re-derives both the full and the partial hash, then
increments the attempt counter in the same store update that performs the
transition. The counter never exceeds the alert's MaxPasswordAttempts.

A partial (duress) match resolves the alert exactly as the full password
does from the caller's point of view. Internally the alert is flagged with
Duress and AuthoritiesNotified, and the returned Outcome tells the
orchestrator to raise the silent escalation. Outcome values never leave the
service.

# Timeouts

EscalateOnTimeout re-reads the alert under its lock before escalating, so a
timer that fires after a successful verification is a no-op.
*/
package alert
