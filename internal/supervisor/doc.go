// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package supervisor runs the service's long-lived components under a suture
v4 supervisor tree.

	traveal
	├── data-layer
	│   ├── event-recorder     action log writer fed by the event bus
	│   └── retention-sweeper  cron-driven cleanup of closed records
	├── messaging-layer
	│   └── push-hub           WebSocket in-app push
	└── api-layer
	    └── api-server         HTTP server, drains the SOS service on stop

Each layer restarts independently, so a crashing recorder never takes the
alert API down with it. Supervisor events are logged through sutureslog.

# Failure Handling

Failures increment a counter that decays over FailureDecay seconds. Past
FailureThreshold the supervisor waits FailureBackoff before restarting.
Defaults match suture's own: 5 failures, 30s decay, 15s backoff and a 10s
per-service shutdown timeout.

# Shutdown

Cancel the context passed to Serve. Services that miss the timeout show up
in UnstoppedServiceReport.

Escalation timers are not supervised: they live inside the SOS service and
are stopped by its Shutdown, which the api-server service calls after the
HTTP server has stopped accepting requests.
*/
package supervisor
