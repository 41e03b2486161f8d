// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/traveal/internal/models"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	bdb, err := OpenBadger(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = bdb.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"badger": bdb,
	}
}

var testEpoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func testProfile(id, user string) *models.Profile {
	return &models.Profile{
		ID:                  id,
		UserID:              user,
		FullPasswordHash:    "full-hash",
		PartialPasswordHash: "partial-hash",
		Enabled:             true,
		VoiceLanguage:       "en",
		Contacts: []models.EmergencyContact{
			{ID: "c1", Name: "Asha", Phone: "+919876543210", Priority: 1, Active: true},
		},
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch,
	}
}

func testAlert(id, user string, created time.Time) *models.Alert {
	return &models.Alert{
		ID:                  id,
		UserID:              user,
		ProfileID:           "p-" + user,
		Type:                models.AlertTypeManualTrigger,
		Severity:            models.SeverityHigh,
		Status:              models.AlertStatusTriggered,
		MaxPasswordAttempts: models.DefaultMaxPasswordAttempts,
		CreatedAt:           created,
		UpdatedAt:           created,
	}
}

func TestProfileLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.CreateProfile(ctx, testProfile("p1", "u1")); err != nil {
				t.Fatalf("CreateProfile: %v", err)
			}
			if err := s.CreateProfile(ctx, testProfile("p2", "u1")); !errors.Is(err, ErrAlreadyExists) {
				t.Errorf("second profile for user: err = %v, want ErrAlreadyExists", err)
			}

			byUser, err := s.GetProfileByUser(ctx, "u1")
			if err != nil {
				t.Fatalf("GetProfileByUser: %v", err)
			}
			if byUser.ID != "p1" || len(byUser.Contacts) != 1 {
				t.Errorf("GetProfileByUser = %+v", byUser)
			}

			updated, err := s.UpdateProfile(ctx, "p1", func(p *models.Profile) error {
				p.VoiceLanguage = "ml"
				p.ID = "ignored"
				return nil
			})
			if err != nil {
				t.Fatalf("UpdateProfile: %v", err)
			}
			if updated.ID != "p1" || updated.VoiceLanguage != "ml" {
				t.Errorf("updated = %+v", updated)
			}

			got, _ := s.GetProfile(ctx, "p1")
			if got.VoiceLanguage != "ml" {
				t.Errorf("stored voice language = %q, want ml", got.VoiceLanguage)
			}

			if _, err := s.GetProfile(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
				t.Errorf("GetProfile(missing) err = %v, want ErrNotFound", err)
			}
			if _, err := s.GetProfileByUser(ctx, "nobody"); !errors.Is(err, models.ErrNotFound) {
				t.Errorf("GetProfileByUser(nobody) err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestUpdateErrorPersistsNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("boom")

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.CreateAlert(ctx, testAlert("a1", "u1", testEpoch)); err != nil {
				t.Fatalf("CreateAlert: %v", err)
			}
			_, err := s.UpdateAlert(ctx, "a1", func(a *models.Alert) error {
				a.Status = models.AlertStatusResolved
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("UpdateAlert err = %v, want boom", err)
			}
			got, _ := s.GetAlert(ctx, "a1")
			if got.Status != models.AlertStatusTriggered {
				t.Errorf("status = %q, want triggered", got.Status)
			}

			if _, err := s.UpdateAlert(ctx, "nope", func(*models.Alert) error { return nil }); !errors.Is(err, models.ErrNotFound) {
				t.Errorf("UpdateAlert(nope) err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			m := &models.Monitoring{
				ID:           "m1",
				UserID:       "u1",
				PlannedRoute: []models.Location{{Latitude: 10, Longitude: 76}, {Latitude: 10.01, Longitude: 76.01}},
				Active:       true,
			}
			if err := s.CreateMonitoring(ctx, m); err != nil {
				t.Fatalf("CreateMonitoring: %v", err)
			}
			m.PlannedRoute[0].Latitude = 0

			got, _ := s.GetMonitoring(ctx, "m1")
			got.PlannedRoute[1].Latitude = 0

			again, _ := s.GetMonitoring(ctx, "m1")
			if again.PlannedRoute[0].Latitude != 10 || again.PlannedRoute[1].Latitude != 10.01 {
				t.Errorf("planned route mutated through caller copy: %+v", again.PlannedRoute)
			}
		})
	}
}

func TestListAlertsByUserNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				a := testAlert(fmt.Sprintf("a%d", i), "u1", testEpoch.Add(time.Duration(i)*time.Minute))
				if err := s.CreateAlert(ctx, a); err != nil {
					t.Fatalf("CreateAlert: %v", err)
				}
			}
			if err := s.CreateAlert(ctx, testAlert("other", "u2", testEpoch)); err != nil {
				t.Fatalf("CreateAlert: %v", err)
			}

			alerts, err := s.ListAlertsByUser(ctx, "u1")
			if err != nil {
				t.Fatalf("ListAlertsByUser: %v", err)
			}
			if len(alerts) != 3 {
				t.Fatalf("len = %d, want 3", len(alerts))
			}
			for i, want := range []string{"a2", "a1", "a0"} {
				if alerts[i].ID != want {
					t.Errorf("alerts[%d] = %s, want %s", i, alerts[i].ID, want)
				}
			}
		})
	}
}

func TestActionLogOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			entries := []*models.ActionLog{
				{ID: "e2", Action: models.ActionPasswordFailed, AlertID: "a1", UserID: "u1", Timestamp: testEpoch.Add(2 * time.Second)},
				{ID: "e1", Action: models.ActionAlertTriggered, AlertID: "a1", UserID: "u1", Timestamp: testEpoch},
				{ID: "e3", Action: models.ActionMonitoringStarted, MonitoringID: "m1", UserID: "u1", Timestamp: testEpoch},
			}
			for _, e := range entries {
				if err := s.AppendActionLog(ctx, e); err != nil {
					t.Fatalf("AppendActionLog: %v", err)
				}
			}

			got, err := s.ListActionLogs(ctx, "a1")
			if err != nil {
				t.Fatalf("ListActionLogs: %v", err)
			}
			if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e2" {
				t.Errorf("ListActionLogs(a1) = %v", got)
			}

			got, _ = s.ListActionLogs(ctx, "m1")
			if len(got) != 1 || got[0].Action != models.ActionMonitoringStarted {
				t.Errorf("ListActionLogs(m1) = %v", got)
			}
		})
	}
}

func TestConcurrentAlertUpdatesAreSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.CreateAlert(ctx, testAlert("a1", "u1", testEpoch)); err != nil {
				t.Fatalf("CreateAlert: %v", err)
			}

			const workers = 10
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.UpdateAlert(ctx, "a1", func(a *models.Alert) error {
						if a.PasswordAttempts >= a.MaxPasswordAttempts {
							return errors.New("exhausted")
						}
						a.PasswordAttempts++
						return nil
					})
					if err != nil && err.Error() != "exhausted" {
						t.Errorf("UpdateAlert: %v", err)
					}
				}()
			}
			wg.Wait()

			got, _ := s.GetAlert(ctx, "a1")
			if got.PasswordAttempts != models.DefaultMaxPasswordAttempts {
				t.Errorf("attempts = %d, want %d", got.PasswordAttempts, models.DefaultMaxPasswordAttempts)
			}
		})
	}
}

func TestRetentionDeletes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cutoff := testEpoch.Add(24 * time.Hour)
	old := testEpoch
	recent := cutoff.Add(time.Hour)

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ended := &models.Monitoring{ID: "ended-old", UserID: "u1", EndTime: &old}
			endedRecent := &models.Monitoring{ID: "ended-recent", UserID: "u1", EndTime: &recent}
			active := &models.Monitoring{ID: "active", UserID: "u1", Active: true, StartTime: old}
			for _, m := range []*models.Monitoring{ended, endedRecent, active} {
				if err := s.CreateMonitoring(ctx, m); err != nil {
					t.Fatalf("CreateMonitoring: %v", err)
				}
			}

			resolved := testAlert("resolved-old", "u1", old)
			resolved.Status = models.AlertStatusResolved
			triggered := testAlert("triggered-old", "u1", old)
			for _, a := range []*models.Alert{resolved, triggered} {
				if err := s.CreateAlert(ctx, a); err != nil {
					t.Fatalf("CreateAlert: %v", err)
				}
			}

			_ = s.AppendActionLog(ctx, &models.ActionLog{ID: "old", AlertID: "resolved-old", Timestamp: old})
			_ = s.AppendActionLog(ctx, &models.ActionLog{ID: "new", AlertID: "resolved-old", Timestamp: recent})

			if n, err := s.DeleteEndedMonitoringBefore(ctx, cutoff); err != nil || n != 1 {
				t.Errorf("DeleteEndedMonitoringBefore = %d, %v; want 1", n, err)
			}
			if n, err := s.DeleteTerminalAlertsBefore(ctx, cutoff); err != nil || n != 1 {
				t.Errorf("DeleteTerminalAlertsBefore = %d, %v; want 1", n, err)
			}
			if n, err := s.DeleteActionLogsBefore(ctx, cutoff); err != nil || n != 1 {
				t.Errorf("DeleteActionLogsBefore = %d, %v; want 1", n, err)
			}

			if _, err := s.GetMonitoring(ctx, "active"); err != nil {
				t.Errorf("active monitoring removed: %v", err)
			}
			if _, err := s.GetAlert(ctx, "triggered-old"); err != nil {
				t.Errorf("triggered alert removed: %v", err)
			}
			alerts, _ := s.ListAlertsByUser(ctx, "u1")
			if len(alerts) != 1 || alerts[0].ID != "triggered-old" {
				t.Errorf("ListAlertsByUser after sweep = %v", alerts)
			}
		})
	}
}

func TestSweeper(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if _, err := NewSweeper(NewMemory(), "not a schedule", time.Hour); err == nil {
		t.Error("NewSweeper accepted invalid schedule")
	}
	if _, err := NewSweeper(NewMemory(), "@every 1h", 0); err == nil {
		t.Error("NewSweeper accepted zero retention")
	}

	s := NewMemory()
	w, err := NewSweeper(s, "@every 1h", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	w.now = func() time.Time { return testEpoch.Add(48 * time.Hour) }

	end := testEpoch
	_ = s.CreateMonitoring(ctx, &models.Monitoring{ID: "m1", EndTime: &end})
	cancelled := testAlert("a1", "u1", testEpoch)
	cancelled.Status = models.AlertStatusCancelled
	_ = s.CreateAlert(ctx, cancelled)
	_ = s.AppendActionLog(ctx, &models.ActionLog{ID: "e1", AlertID: "a1", Timestamp: testEpoch})

	res, err := w.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res != (SweepResult{Monitoring: 1, Alerts: 1, ActionLogs: 1}) {
		t.Errorf("Sweep = %+v", res)
	}
	if w.String() != "retention-sweeper" {
		t.Errorf("String() = %q", w.String())
	}
}

func TestSweeperServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	w, err := NewSweeper(NewMemory(), "@every 1h", time.Hour)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestKeyedMutex(t *testing.T) {
	t.Parallel()

	km := NewKeyedMutex()
	var mu sync.Mutex
	counter := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			unlock := km.Lock(key)
			defer unlock()

			mu.Lock()
			counter[key]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	for k, n := range counter {
		if n != 10 {
			t.Errorf("counter[%s] = %d, want 10", k, n)
		}
	}
	if km.Len() != 0 {
		t.Errorf("Len() = %d after all unlocks, want 0", km.Len())
	}
}
