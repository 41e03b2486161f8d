// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package route tracks monitored trips against their planned route.
//
// A session moves from active to ended exactly once. Each location update
// appends to the actual-route trace and recomputes the deviation flag; the
// monitor never raises alerts itself.
package route

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/traveal/internal/geo"
	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/metrics"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/store"
)

// Deviation threshold defaults in meters.
const (
	DefaultThresholdMeters = 500
	MinThresholdMeters     = 100
	MaxThresholdMeters     = 5000
)

// errAlreadyEnded aborts the End update without writing.
var errAlreadyEnded = errors.New("monitoring already ended")

// Config holds the threshold bounds.
type Config struct {
	DefaultThreshold float64
	MinThreshold     float64
	MaxThreshold     float64
}

// DefaultConfig returns the standard threshold bounds.
func DefaultConfig() Config {
	return Config{
		DefaultThreshold: DefaultThresholdMeters,
		MinThreshold:     MinThresholdMeters,
		MaxThreshold:     MaxThresholdMeters,
	}
}

// StartRequest describes a new monitoring session.
type StartRequest struct {
	UserID           string
	ProfileID        string
	TripID           string
	PlannedRoute     []models.Location
	Destination      *models.Destination
	ThresholdMeters  float64 // 0 selects the default
	EstimatedArrival *time.Time
}

// Monitor manages route-monitoring sessions.
type Monitor struct {
	store store.MonitoringStore
	cfg   Config
	now   func() time.Time
}

// NewMonitor creates a Monitor. Zero config fields take their defaults.
func NewMonitor(s store.MonitoringStore, cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = def.DefaultThreshold
	}
	if cfg.MinThreshold <= 0 {
		cfg.MinThreshold = def.MinThreshold
	}
	if cfg.MaxThreshold <= 0 {
		cfg.MaxThreshold = def.MaxThreshold
	}
	return &Monitor{store: s, cfg: cfg, now: time.Now}
}

// SetClock replaces the time source. Tests only.
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Start validates req and creates an active session. The last known
// location starts at the first planned point.
func (m *Monitor) Start(ctx context.Context, req StartRequest) (*models.Monitoring, error) {
	if len(req.PlannedRoute) < 2 {
		return nil, models.NewValidationError("planned_route", "must contain at least 2 points")
	}
	for i, p := range req.PlannedRoute {
		if err := p.Validate(); err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("planned_route[%d]", i), err.Error())
		}
	}
	if req.Destination != nil {
		if err := req.Destination.Validate(); err != nil {
			return nil, models.NewValidationError("destination", err.Error())
		}
	}

	threshold := req.ThresholdMeters
	if threshold == 0 {
		threshold = m.cfg.DefaultThreshold
	}
	if threshold < m.cfg.MinThreshold || threshold > m.cfg.MaxThreshold {
		return nil, models.NewValidationError("deviation_threshold",
			fmt.Sprintf("must be between %.0f and %.0f meters", m.cfg.MinThreshold, m.cfg.MaxThreshold))
	}

	now := m.now().UTC()
	session := &models.Monitoring{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		ProfileID:         req.ProfileID,
		TripID:            req.TripID,
		PlannedRoute:      append([]models.Location(nil), req.PlannedRoute...),
		ActualRoute:       []models.Location{},
		Destination:       req.Destination,
		ThresholdMeters:   threshold,
		Active:            true,
		StartTime:         now,
		EstimatedArrival:  req.EstimatedArrival,
		LastKnownLocation: req.PlannedRoute[0],
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.store.CreateMonitoring(ctx, session); err != nil {
		return nil, models.NewInternalError("create monitoring", err)
	}

	metrics.RouteMonitoringActive.Inc()
	logging.Ctx(ctx).Info().
		Str("monitoring_id", session.ID).
		Int("waypoints", len(session.PlannedRoute)).
		Float64("threshold_m", threshold).
		Msg("Route monitoring started")
	return session, nil
}

// UpdateLocation appends p to the trace and recomputes the deviation flag.
// An ended or unknown session yields a NotFoundError.
func (m *Monitor) UpdateLocation(ctx context.Context, id string, p models.Location) (models.DeviationCheck, error) {
	if err := p.Validate(); err != nil {
		return models.DeviationCheck{}, models.NewValidationError("location", err.Error())
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = m.now().UTC()
	}

	var check models.DeviationCheck
	_, err := m.store.UpdateMonitoring(ctx, id, func(s *models.Monitoring) error {
		if !s.Active {
			return models.NewNotFoundError("monitoring", id)
		}
		dist := geo.DistanceToPolyline(toPoint(p), toPoints(s.PlannedRoute))

		check = models.DeviationCheck{
			MonitoringID:       s.ID,
			DistanceFromRoute:  dist,
			DeviationDetected:  dist > s.ThresholdMeters,
			ThresholdMeters:    s.ThresholdMeters,
			PreviouslyDeviated: s.DeviationDetected,
		}
		s.ActualRoute = append(s.ActualRoute, p)
		s.LastKnownLocation = p
		s.DeviationDetected = check.DeviationDetected
		s.UpdatedAt = m.now().UTC()
		return nil
	})
	if err != nil {
		return models.DeviationCheck{}, err
	}

	metrics.RouteLocationUpdates.Inc()
	if check.NewlyDeviated() {
		metrics.RouteDeviations.Inc()
		logging.Ctx(ctx).Warn().
			Str("monitoring_id", id).
			Float64("distance_m", math.Round(check.DistanceFromRoute)).
			Msg("Route deviation detected")
	}
	return check, nil
}

// End deactivates the session. It returns false without error when the
// session was already ended.
func (m *Monitor) End(ctx context.Context, id string) (bool, error) {
	_, err := m.store.UpdateMonitoring(ctx, id, func(s *models.Monitoring) error {
		if !s.Active {
			return errAlreadyEnded
		}
		now := m.now().UTC()
		s.Active = false
		s.EndTime = &now
		s.UpdatedAt = now
		return nil
	})
	if errors.Is(err, errAlreadyEnded) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	metrics.RouteMonitoringActive.Dec()
	logging.Ctx(ctx).Info().Str("monitoring_id", id).Msg("Route monitoring ended")
	return true, nil
}

// Get returns a session regardless of its state.
func (m *Monitor) Get(ctx context.Context, id string) (*models.Monitoring, error) {
	return m.store.GetMonitoring(ctx, id)
}

func toPoint(l models.Location) geo.Point {
	return geo.Point{Lat: l.Latitude, Lng: l.Longitude}
}

func toPoints(ls []models.Location) []geo.Point {
	pts := make([]geo.Point, len(ls))
	for i, l := range ls {
		pts[i] = toPoint(l)
	}
	return pts
}
