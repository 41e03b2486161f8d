// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package sos

import (
	"sync"
	"time"

	"github.com/tomtom215/traveal/internal/metrics"
)

// Scheduler runs one cancellable callback per alert id.
type Scheduler interface {
	// Schedule arranges for fn to run after d. Scheduling an id that is
	// already pending replaces the earlier callback.
	Schedule(id string, d time.Duration, fn func())
	// Cancel stops the pending callback for id. It reports whether a
	// callback was pending.
	Cancel(id string) bool
	// Stop cancels every pending callback.
	Stop()
}

// TimerScheduler implements Scheduler with time.AfterFunc.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerScheduler creates an empty TimerScheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

// Schedule implements Scheduler.
func (s *TimerScheduler) Schedule(id string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[id]; ok {
		old.Stop()
		metrics.EscalationTimersActive.Dec()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		// Only the timer still registered for id may run.
		s.mu.Lock()
		current, ok := s.timers[id]
		if !ok || current != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		metrics.EscalationTimersActive.Dec()
		s.mu.Unlock()

		fn()
	})
	s.timers[id] = t
	metrics.EscalationTimersActive.Inc()
}

// Cancel implements Scheduler.
func (s *TimerScheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.timers, id)
	metrics.EscalationTimersActive.Dec()
	return true
}

// Stop implements Scheduler.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		metrics.EscalationTimersActive.Dec()
	}
}

// Pending returns the number of scheduled callbacks.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
