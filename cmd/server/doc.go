// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Command server runs the Traveal SOS service: route-deviation monitoring,
password-verified alerts with a duress password, and emergency contact
notification.

# Startup

 1. Configuration: koanf v2, defaults < config file < environment
 2. Logging: zerolog, optionally with a rotated log file
 3. Store: in-memory or BadgerDB
 4. Notification channels: SMS, email, push and authorities per provider
 5. SOS service: route monitor, alert state machine, escalation timers
 6. HTTP router: chi with request IDs, access logs, CORS and rate limits
 7. Supervisor tree: suture v4

	traveal
	├── data-layer: event-recorder, retention-sweeper
	├── messaging-layer: push-hub
	└── api-layer: api-server

# Configuration

Common environment variables:

	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console
	AUTH_MODE=jwt                # jwt or none (development only)
	JWT_SECRET=<32+ chars>
	STORE_BACKEND=badger         # memory or badger
	STORE_PATH=/data/traveal
	SOS_ESCALATION_TIMEOUT=60s
	SMS_PROVIDER=http            # log or http
	SMTP_PROVIDER=smtp           # log or smtp
	PUSH_PROVIDER=websocket      # log, http or websocket
	AUTHORITIES_PROVIDER=webhook # log or webhook

CONFIG_PATH points at a YAML config file with the same keys.

# Signal Handling

SIGINT and SIGTERM stop the tree. The HTTP server stops accepting
requests, then pending escalation timers are stopped and in-flight
notification fan-outs are given the shutdown timeout to finish. Timers
are not persisted; alerts still triggered after a restart escalate only
on a later verification failure.
*/
package main
