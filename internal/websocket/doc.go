// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package websocket delivers in-app notifications to connected users.

The Hub keeps live connections grouped by user. It is the "websocket" push
provider for SOS fan-out: when an emergency contact is also an app user, the
alert reaches their open app through Hub.SendPush. Users also receive
alert_update messages about their own alerts on every connected device.

	┌──────────┐
	│   Hub    │ ← routes by user id
	└────┬─────┘
	     │
	┌────┴─────────────┬──────────────┐
	│ user-a: phone    │ user-a: web  │ user-b: phone
	└──────────────────┴──────────────┘

Each client has two goroutines:
  - readPump: reads pings, detects disconnects
  - writePump: writes queued messages and keepalive pings

Message Types:
  - push: in-app notification {title, body, data}
  - alert_update: status change of one of the user's own alerts
    (triggered, resolved or cancelled; escalation is never pushed)
  - ping / pong: application-level keepalive

SendPush returns ErrNotConnected when the user is offline, so the dispatcher
records the channel as failed. A client whose send buffer fills up is
disconnected.
*/
package websocket
