// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package alert

import "github.com/tomtom215/traveal/internal/models"

// SeverityFor ranks a new alert. Route deviations scale with distance in
// meters; client-raised alerts use fixed levels.
func SeverityFor(t models.AlertType, deviationMeters float64) models.Severity {
	switch t {
	case models.AlertTypeRouteDeviation:
		switch {
		case deviationMeters < 1000:
			return models.SeverityLow
		case deviationMeters < 2000:
			return models.SeverityMedium
		case deviationMeters < 5000:
			return models.SeverityHigh
		default:
			return models.SeverityCritical
		}
	case models.AlertTypeTamperDetection:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}
