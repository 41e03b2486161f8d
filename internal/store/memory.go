// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/traveal/internal/models"
)

// Memory is an in-process Store. Records are cloned on the way in and out,
// so callers never share state with the store.
type Memory struct {
	mu          sync.RWMutex
	profiles    map[string]*models.Profile
	userProfile map[string]string
	monitoring  map[string]*models.Monitoring
	alerts      map[string]*models.Alert
	actions     []*models.ActionLog

	records *KeyedMutex
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		profiles:    make(map[string]*models.Profile),
		userProfile: make(map[string]string),
		monitoring:  make(map[string]*models.Monitoring),
		alerts:      make(map[string]*models.Alert),
		records:     NewKeyedMutex(),
	}
}

// Close implements Store.
func (s *Memory) Close() error { return nil }

// CreateProfile implements ProfileStore.
func (s *Memory) CreateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.ID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.userProfile[p.UserID]; ok {
		return ErrAlreadyExists
	}
	s.profiles[p.ID] = p.Clone()
	s.userProfile[p.UserID] = p.ID
	return nil
}

// GetProfile implements ProfileStore.
func (s *Memory) GetProfile(_ context.Context, id string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, profileNotFound(id)
	}
	return p.Clone(), nil
}

// GetProfileByUser implements ProfileStore.
func (s *Memory) GetProfileByUser(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.RLock()
	id, ok := s.userProfile[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, profileNotFound(userID)
	}
	return s.GetProfile(ctx, id)
}

// UpdateProfile implements ProfileStore.
func (s *Memory) UpdateProfile(ctx context.Context, id string, fn func(*models.Profile) error) (*models.Profile, error) {
	unlock := s.records.Lock("profile:" + id)
	defer unlock()

	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.ID = id

	s.mu.Lock()
	s.profiles[id] = p.Clone()
	s.mu.Unlock()
	return p, nil
}

// CreateMonitoring implements MonitoringStore.
func (s *Memory) CreateMonitoring(_ context.Context, m *models.Monitoring) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.monitoring[m.ID]; ok {
		return ErrAlreadyExists
	}
	s.monitoring[m.ID] = m.Clone()
	return nil
}

// GetMonitoring implements MonitoringStore.
func (s *Memory) GetMonitoring(_ context.Context, id string) (*models.Monitoring, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.monitoring[id]
	if !ok {
		return nil, monitoringNotFound(id)
	}
	return m.Clone(), nil
}

// UpdateMonitoring implements MonitoringStore.
func (s *Memory) UpdateMonitoring(ctx context.Context, id string, fn func(*models.Monitoring) error) (*models.Monitoring, error) {
	unlock := s.records.Lock("monitoring:" + id)
	defer unlock()

	m, err := s.GetMonitoring(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	m.ID = id

	s.mu.Lock()
	s.monitoring[id] = m.Clone()
	s.mu.Unlock()
	return m, nil
}

// DeleteEndedMonitoringBefore implements MonitoringStore.
func (s *Memory) DeleteEndedMonitoringBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, m := range s.monitoring {
		if !m.Active && m.EndTime != nil && m.EndTime.Before(cutoff) {
			delete(s.monitoring, id)
			n++
		}
	}
	return n, nil
}

// CreateAlert implements AlertStore.
func (s *Memory) CreateAlert(_ context.Context, a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[a.ID]; ok {
		return ErrAlreadyExists
	}
	s.alerts[a.ID] = a.Clone()
	return nil
}

// GetAlert implements AlertStore.
func (s *Memory) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, alertNotFound(id)
	}
	return a.Clone(), nil
}

// UpdateAlert implements AlertStore.
func (s *Memory) UpdateAlert(ctx context.Context, id string, fn func(*models.Alert) error) (*models.Alert, error) {
	unlock := s.records.Lock("alert:" + id)
	defer unlock()

	a, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	a.ID = id

	s.mu.Lock()
	s.alerts[id] = a.Clone()
	s.mu.Unlock()
	return a, nil
}

// ListAlertsByUser implements AlertStore.
func (s *Memory) ListAlertsByUser(_ context.Context, userID string) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Alert
	for _, a := range s.alerts {
		if a.UserID == userID {
			out = append(out, a.Clone())
		}
	}
	sortAlertsNewestFirst(out)
	return out, nil
}

// DeleteTerminalAlertsBefore implements AlertStore.
func (s *Memory) DeleteTerminalAlertsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, a := range s.alerts {
		if a.IsTerminal() && a.UpdatedAt.Before(cutoff) {
			delete(s.alerts, id)
			n++
		}
	}
	return n, nil
}

// AppendActionLog implements ActionLogStore.
func (s *Memory) AppendActionLog(_ context.Context, entry *models.ActionLog) error {
	c := *entry
	s.mu.Lock()
	s.actions = append(s.actions, &c)
	s.mu.Unlock()
	return nil
}

// ListActionLogs implements ActionLogStore.
func (s *Memory) ListActionLogs(_ context.Context, alertID string) ([]*models.ActionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ActionLog
	for _, e := range s.actions {
		if actionLogSubject(e) == alertID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// DeleteActionLogsBefore implements ActionLogStore.
func (s *Memory) DeleteActionLogsBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.actions[:0]
	for _, e := range s.actions {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	n := len(s.actions) - len(kept)
	for i := len(kept); i < len(s.actions); i++ {
		s.actions[i] = nil
	}
	s.actions = kept
	return n, nil
}

func sortAlertsNewestFirst(alerts []*models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
