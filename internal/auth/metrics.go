// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts counts request authentication outcomes.
	// Labels:
	//   - mode: "jwt", "none"
	//   - outcome: "success", "missing", "invalid"
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traveal_auth_attempts_total",
			Help: "Total number of request authentication attempts",
		},
		[]string{"mode", "outcome"},
	)
)

func recordAttempt(mode AuthMode, outcome string) {
	AuthAttempts.WithLabelValues(string(mode), outcome).Inc()
}
