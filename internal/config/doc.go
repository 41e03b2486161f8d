// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package config provides centralized configuration management for Traveal.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. The result is validated before use.

# Configuration File

The first existing file wins:
  - $CONFIG_PATH
  - config.yaml, config.yml
  - /etc/traveal/config.yaml, /etc/traveal/config.yml

# Environment Variables

Only explicitly mapped variables are read. The most common ones:

Server:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8080)
  - ENVIRONMENT: development or production

Security:
  - AUTH_MODE: jwt or none (none is rejected in production)
  - JWT_SECRET: HS256 signing secret, at least 32 characters
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, VERIFY_RATE_LIMIT_REQS
  - CORS_ORIGINS: comma-separated list

Storage:
  - STORE_BACKEND: memory or badger (default: badger)
  - STORE_PATH: Badger directory (default: /data/traveal)

SOS:
  - SOS_ESCALATION_TIMEOUT (default: 60s)
  - SOS_VERIFY_LATENCY_FLOOR (default: 300ms)
  - SOS_DEFAULT_THRESHOLD, SOS_MIN_THRESHOLD, SOS_MAX_THRESHOLD (500/100/5000 m)
  - SOS_MAX_PASSWORD_ATTEMPTS (default: 3)
  - SOS_RETENTION_SCHEDULE, SOS_RETENTION_AGE

Notifications:
  - SMS_PROVIDER (log, http), SMS_URL, SMS_API_KEY, SMS_SENDER
  - SMTP_PROVIDER (log, smtp), SMTP_HOST, SMTP_PORT, SMTP_FROM, ...
  - PUSH_PROVIDER (log, http, websocket), PUSH_URL, PUSH_API_KEY
  - AUTHORITIES_PROVIDER (log, webhook), AUTHORITIES_WEBHOOK_URL

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config
