// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package sos

import (
	"context"
	"strconv"
	"time"

	"github.com/tomtom215/traveal/internal/alert"
	"github.com/tomtom215/traveal/internal/events"
	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/route"
)

// MonitoringInput starts a monitoring session.
type MonitoringInput struct {
	TripID           string
	PlannedRoute     []models.Location
	Destination      *models.Destination
	ThresholdMeters  float64
	EstimatedArrival *time.Time
}

// LocationResult is the response to a location update. Alert is set only
// when this update raised a route deviation alert.
type LocationResult struct {
	models.DeviationCheck
	Alert *models.AlertView `json:"alert,omitempty"`
}

// StartMonitoring opens a monitoring session for the user's profile.
func (s *Service) StartMonitoring(ctx context.Context, userID string, in MonitoringInput) (*models.Monitoring, error) {
	p, err := s.profileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return nil, models.NewValidationError("profile", "SOS is disabled for this profile")
	}

	m, err := s.monitor.Start(ctx, route.StartRequest{
		UserID:           userID,
		ProfileID:        p.ID,
		TripID:           in.TripID,
		PlannedRoute:     in.PlannedRoute,
		Destination:      in.Destination,
		ThresholdMeters:  in.ThresholdMeters,
		EstimatedArrival: in.EstimatedArrival,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Action:       models.ActionMonitoringStarted,
		UserID:       userID,
		MonitoringID: m.ID,
		Details:      map[string]string{"threshold_m": strconv.FormatFloat(m.ThresholdMeters, 'f', 0, 64)},
	})
	return m, nil
}

// GetMonitoring returns a session owned by the user.
func (s *Service) GetMonitoring(ctx context.Context, userID, monitoringID string) (*models.Monitoring, error) {
	m, err := s.monitor.Get(ctx, monitoringID)
	if err != nil {
		return nil, storeError("get monitoring", err)
	}
	if m.UserID != userID {
		return nil, models.NewNotFoundError("monitoring", monitoringID)
	}
	return m, nil
}

// UpdateLocationAndCheckDeviation records a location and raises a route
// deviation alert on the on-route to off-route edge. Further off-route
// updates do not raise again; the edge re-arms once the user is back on
// route. No alert is raised while an earlier alert from this session is
// still triggered, or when the profile is disabled.
func (s *Service) UpdateLocationAndCheckDeviation(ctx context.Context, userID, monitoringID string, loc models.Location) (LocationResult, error) {
	if _, err := s.GetMonitoring(ctx, userID, monitoringID); err != nil {
		return LocationResult{}, err
	}

	check, err := s.monitor.UpdateLocation(ctx, monitoringID, loc)
	if err != nil {
		return LocationResult{}, storeError("update location", err)
	}
	res := LocationResult{DeviationCheck: check}
	if !check.NewlyDeviated() {
		return res, nil
	}

	a, err := s.raiseDeviationAlert(ctx, userID, monitoringID, loc, check.DistanceFromRoute)
	if err != nil {
		return LocationResult{}, err
	}
	if a != nil {
		view := a.View()
		res.Alert = &view
	}
	return res, nil
}

func (s *Service) raiseDeviationAlert(ctx context.Context, userID, monitoringID string, loc models.Location, distance float64) (*models.Alert, error) {
	p, err := s.profileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		logging.Ctx(ctx).Info().Str("monitoring_id", monitoringID).Msg("Route deviation ignored: SOS disabled")
		return nil, nil
	}

	active, err := s.alerts.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range active {
		if a.MonitoringID == monitoringID {
			logging.Ctx(ctx).Info().
				Str("monitoring_id", monitoringID).
				Str("alert_id", a.ID).
				Msg("Route deviation ignored: alert already pending")
			return nil, nil
		}
	}

	a, err := s.trigger(ctx, alert.TriggerRequest{
		UserID:            userID,
		ProfileID:         p.ID,
		MonitoringID:      monitoringID,
		Type:              models.AlertTypeRouteDeviation,
		Location:          loc,
		DeviationDistance: distance,
	})
	if err != nil {
		return nil, err
	}

	// Contacts are told before the response returns so a fast password
	// entry finds them recorded for its status update.
	dispatchCtx := context.WithoutCancel(ctx)
	if updated := s.dispatch(dispatchCtx, a, p); updated != nil {
		a = updated
	}
	return a, nil
}

// EndMonitoring ends a session owned by the user. It returns false when
// the session had already ended.
func (s *Service) EndMonitoring(ctx context.Context, userID, monitoringID string) (bool, error) {
	if _, err := s.GetMonitoring(ctx, userID, monitoringID); err != nil {
		return false, err
	}
	return s.endMonitoring(ctx, userID, monitoringID)
}

func (s *Service) endMonitoring(ctx context.Context, userID, monitoringID string) (bool, error) {
	ended, err := s.monitor.End(ctx, monitoringID)
	if err != nil {
		return false, storeError("end monitoring", err)
	}
	if ended {
		s.publish(ctx, events.Event{
			Action:       models.ActionMonitoringEnded,
			UserID:       userID,
			MonitoringID: monitoringID,
		})
	}
	return ended, nil
}
