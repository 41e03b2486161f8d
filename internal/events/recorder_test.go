// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/store"
)

// mockLive records live messages.
type mockLive struct {
	mu   sync.Mutex
	sent []AlertUpdate
}

func (m *mockLive) Publish(_, messageType string, data interface{}) {
	if messageType != alertUpdateMessage {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data.(AlertUpdate))
}

func (m *mockLive) updates() []AlertUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AlertUpdate(nil), m.sent...)
}

// failingLogs fails the first n appends.
type failingLogs struct {
	store.ActionLogStore
	mu    sync.Mutex
	fails int
}

func (f *failingLogs) AppendActionLog(ctx context.Context, entry *models.ActionLog) error {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return errors.New("disk full")
	}
	f.mu.Unlock()
	return f.ActionLogStore.AppendActionLog(ctx, entry)
}

// startRecorder runs a recorder until the test ends.
func startRecorder(t *testing.T, logs store.ActionLogStore, live LiveNotifier) *Bus {
	t.Helper()
	bus := NewBus(16)
	rec := NewRecorder(bus, logs, live, RecorderConfig{RetryMaxRetries: 1, RetryInitialInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Serve(ctx) }()

	select {
	case <-rec.Running():
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("recorder did not stop")
		}
		_ = bus.Close()
	})
	return bus
}

func waitForLogs(t *testing.T, logs store.ActionLogStore, subject string, n int) []*models.ActionLog {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := logs.ListActionLogs(context.Background(), subject)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) >= n {
			return entries
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d action logs for %s, want %d", len(entries), subject, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRecorder_PersistsEvents(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	live := &mockLive{}
	bus := startRecorder(t, mem, live)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bus.Publish(context.Background(), Event{
		Action: models.ActionAlertTriggered, UserID: "user-1", AlertID: "alert-1",
		Status: string(models.AlertStatusTriggered), OccurredAt: base,
	})
	bus.Publish(context.Background(), Event{
		Action: models.ActionContactsNotified, UserID: "user-1", AlertID: "alert-1",
		Details: map[string]string{"sent": "2", "failed": "2"}, OccurredAt: base.Add(time.Second),
	})
	bus.Publish(context.Background(), Event{
		Action: models.ActionPasswordVerified, UserID: "user-1", AlertID: "alert-1",
		Status: string(models.AlertStatusResolved), OccurredAt: base.Add(2 * time.Second),
	})

	entries := waitForLogs(t, mem, "alert-1", 3)
	wantActions := []string{models.ActionAlertTriggered, models.ActionContactsNotified, models.ActionPasswordVerified}
	for i, want := range wantActions {
		if entries[i].Action != want {
			t.Errorf("entries[%d].Action = %q, want %q", i, entries[i].Action, want)
		}
		if entries[i].ID == "" {
			t.Errorf("entries[%d].ID is empty", i)
		}
	}
	if entries[0].Details["status"] != "triggered" {
		t.Errorf("status detail = %q, want triggered", entries[0].Details["status"])
	}
	if entries[1].Details["sent"] != "2" {
		t.Errorf("sent detail = %q, want 2", entries[1].Details["sent"])
	}

	// Only public status changes reach the user's devices.
	deadline := time.Now().Add(time.Second)
	for len(live.updates()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	updates := live.updates()
	if len(updates) != 2 {
		t.Fatalf("live updates = %+v, want 2", updates)
	}
	if updates[1].Status != "resolved" {
		t.Errorf("last live status = %q, want resolved", updates[1].Status)
	}
}

func TestRecorder_EscalationStaysServerSide(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	live := &mockLive{}
	bus := startRecorder(t, mem, live)

	bus.Publish(context.Background(), Event{
		Action: models.ActionAlertEscalated, UserID: "user-1", AlertID: "alert-esc",
		Status: string(models.AlertStatusEscalated), Details: map[string]string{"reason": "timeout"},
	})
	// Events are consumed in order; the cancellation marks the escalation as handled.
	bus.Publish(context.Background(), Event{
		Action: models.ActionAlertCancelled, UserID: "user-1", AlertID: "alert-other",
		Status: string(models.AlertStatusCancelled),
	})

	entries := waitForLogs(t, mem, "alert-esc", 1)
	if entries[0].Details["status"] != "escalated" {
		t.Errorf("logged status = %q, want escalated", entries[0].Details["status"])
	}

	deadline := time.Now().Add(time.Second)
	for len(live.updates()) < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	updates := live.updates()
	if len(updates) != 1 || updates[0].AlertID != "alert-other" {
		t.Fatalf("live updates = %+v, want only the cancellation", updates)
	}
	for _, u := range updates {
		if u.Status == string(models.AlertStatusEscalated) {
			t.Errorf("escalation pushed to the user's devices: %+v", u)
		}
	}
}

func TestRecorder_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	logs := &failingLogs{ActionLogStore: mem, fails: 1}
	bus := startRecorder(t, logs, nil)

	bus.Publish(context.Background(), Event{Action: models.ActionMonitoringStarted, UserID: "user-1", MonitoringID: "mon-1"})
	waitForLogs(t, mem, "mon-1", 1)
}

func TestRecorder_DropsAfterRetries(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	// One attempt plus one retry both fail.
	logs := &failingLogs{ActionLogStore: mem, fails: 2}
	bus := startRecorder(t, logs, nil)

	bus.Publish(context.Background(), Event{Action: models.ActionMonitoringStarted, UserID: "user-1", MonitoringID: "mon-lost"})
	bus.Publish(context.Background(), Event{Action: models.ActionMonitoringEnded, UserID: "user-1", MonitoringID: "mon-2"})

	// The failing event is acked and dropped; the next one still lands.
	waitForLogs(t, mem, "mon-2", 1)
	entries, err := mem.ListActionLogs(context.Background(), "mon-lost")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("dropped event was recorded: %+v", entries)
	}
}

func TestBus_PublishWithoutSubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus(0)
	defer bus.Close()
	// Must not block or panic.
	bus.Publish(context.Background(), Event{Action: models.ActionAlertCancelled, UserID: "user-1"})
}
