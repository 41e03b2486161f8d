// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SOS Alert Metrics
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_sos_alerts_triggered_total",
			Help: "Total number of SOS alerts raised",
		},
		[]string{"alert_type"},
	)

	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_sos_alert_transitions_total",
			Help: "Total number of alert transitions into a terminal status",
		},
		[]string{"status"}, // resolved, escalated, cancelled
	)

	// PasswordVerifications counts verification outcomes. A duress match is
	// counted as verified.
	PasswordVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_sos_password_verifications_total",
			Help: "Total number of alert password verifications",
		},
		[]string{"outcome"}, // verified, rejected
	)

	EscalationTimersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traveal_sos_escalation_timers_active",
			Help: "Current number of pending escalation timers",
		},
	)

	// Route Monitoring Metrics
	RouteLocationUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traveal_route_location_updates_total",
			Help: "Total number of location updates processed",
		},
	)

	RouteDeviations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traveal_route_deviations_total",
			Help: "Total number of on-route to off-route transitions",
		},
	)

	RouteMonitoringActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traveal_route_monitoring_active",
			Help: "Current number of active monitoring sessions",
		},
	)

	// Notification Metrics
	NotifyDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_notify_deliveries_total",
			Help: "Total number of notification channel deliveries",
		},
		[]string{"channel", "result"}, // result: success, failure
	)

	NotifyDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traveal_notify_delivery_duration_seconds",
			Help:    "Notification channel delivery duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "traveal_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traveal_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"route"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "traveal_websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traveal_websocket_messages_sent_total",
			Help: "Total number of WebSocket push frames sent",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traveal_websocket_messages_dropped_total",
			Help: "Total number of WebSocket frames dropped for slow clients",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_events_published_total",
			Help: "Total number of SOS lifecycle events published",
		},
		[]string{"action"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_events_consumed_total",
			Help: "Total number of SOS lifecycle events consumed",
		},
		[]string{"result"}, // stored, failed
	)

	// Retention Metrics
	RetentionDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_store_retention_deleted_total",
			Help: "Total number of records removed by the retention sweeper",
		},
		[]string{"kind"}, // monitoring, alert, action_log
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDelivery records one notification channel call.
func RecordDelivery(channel string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	NotifyDeliveries.WithLabelValues(channel, result).Inc()
	NotifyDeliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordVerification records a password verification outcome.
func RecordVerification(verified bool) {
	if verified {
		PasswordVerifications.WithLabelValues("verified").Inc()
		return
	}
	PasswordVerifications.WithLabelValues("rejected").Inc()
}
