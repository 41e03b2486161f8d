// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

/*
Package metrics provides Prometheus metrics for the SOS service.

All collectors are registered with the default registry through promauto and
are served at /metrics by the API router.

# Available Metrics

SOS Metrics:
  - traveal_sos_alerts_triggered_total: Alerts raised (counter)
    Labels: alert_type
  - traveal_sos_alert_transitions_total: Terminal transitions (counter)
    Labels: status
  - traveal_sos_password_verifications_total: Verifications (counter)
    Labels: outcome (verified, rejected)
  - traveal_sos_escalation_timers_active: Pending escalation timers (gauge)

Route Metrics:
  - traveal_route_location_updates_total (counter)
  - traveal_route_deviations_total (counter)
  - traveal_route_monitoring_active (gauge)

Notification Metrics:
  - traveal_notify_deliveries_total: Channel calls (counter)
    Labels: channel, result
  - traveal_notify_delivery_duration_seconds (histogram)
    Labels: channel
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_state_transitions_total
    Labels: name (sms, email, push, authorities)

HTTP Metrics:
  - traveal_api_requests_total, traveal_api_request_duration_seconds
    Labels: method, route, status
  - traveal_api_active_requests (gauge)
  - traveal_api_rate_limit_hits_total
    Labels: route

Other:
  - traveal_websocket_connections, traveal_websocket_messages_sent_total,
    traveal_websocket_messages_dropped_total
  - traveal_events_published_total, traveal_events_consumed_total
  - traveal_store_retention_deleted_total
    Labels: kind

# Privacy

No label ever carries a user id, alert id, or the duress outcome. A duress
match is recorded as a verified outcome so the metrics endpoint cannot be
used to tell the two apart.
*/
package metrics
