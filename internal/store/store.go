// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package store persists SOS profiles, monitoring sessions, alerts and the
// action log.
//
// Two backends implement Store: Memory for tests and development, and
// Badger for durable single-node deployments. Both give every Update call
// atomic read-modify-write semantics for one record: the mutation runs
// under a per-id lock against the latest stored value, and nothing is
// written if it returns an error.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/traveal/internal/models"
)

// ErrAlreadyExists is returned when creating a record whose id, or a
// profile whose user, is already present.
var ErrAlreadyExists = errors.New("store: record already exists")

// ProfileStore persists SOS profiles. A user has at most one profile.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	GetProfileByUser(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id string, fn func(*models.Profile) error) (*models.Profile, error)
}

// MonitoringStore persists route-monitoring sessions.
type MonitoringStore interface {
	CreateMonitoring(ctx context.Context, m *models.Monitoring) error
	GetMonitoring(ctx context.Context, id string) (*models.Monitoring, error)
	UpdateMonitoring(ctx context.Context, id string, fn func(*models.Monitoring) error) (*models.Monitoring, error)
	// DeleteEndedMonitoringBefore removes inactive sessions that ended before cutoff.
	DeleteEndedMonitoringBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// AlertStore persists SOS alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	UpdateAlert(ctx context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error)
	// ListAlertsByUser returns the user's alerts, newest first.
	ListAlertsByUser(ctx context.Context, userID string) ([]*models.Alert, error)
	// DeleteTerminalAlertsBefore removes terminal alerts last updated before cutoff.
	DeleteTerminalAlertsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ActionLogStore persists the server-side action log.
type ActionLogStore interface {
	AppendActionLog(ctx context.Context, entry *models.ActionLog) error
	// ListActionLogs returns the entries for one alert, oldest first.
	ListActionLogs(ctx context.Context, alertID string) ([]*models.ActionLog, error)
	DeleteActionLogsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Store is the full persistence collaborator.
type Store interface {
	ProfileStore
	MonitoringStore
	AlertStore
	ActionLogStore
	Close() error
}

func profileNotFound(id string) error    { return models.NewNotFoundError("profile", id) }
func monitoringNotFound(id string) error { return models.NewNotFoundError("monitoring", id) }
func alertNotFound(id string) error      { return models.NewNotFoundError("alert", id) }

// actionLogSubject is the id an action log entry is indexed under.
func actionLogSubject(e *models.ActionLog) string {
	switch {
	case e.AlertID != "":
		return e.AlertID
	case e.MonitoringID != "":
		return e.MonitoringID
	default:
		return e.UserID
	}
}
