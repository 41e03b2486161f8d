// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package sos

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/traveal/internal/metrics"
)

func TestTimerScheduler_Fires(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	before := testutil.ToFloat64(metrics.EscalationTimersActive)
	fired := make(chan struct{})
	s.Schedule("alert-1", 10*time.Millisecond, func() { close(fired) })
	if got := testutil.ToFloat64(metrics.EscalationTimersActive); got != before+1 {
		t.Errorf("active timers gauge = %v, want %v", got, before+1)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	deadline := time.Now().Add(time.Second)
	for s.Pending() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after fire", s.Pending())
	}
	if got := testutil.ToFloat64(metrics.EscalationTimersActive); got != before {
		t.Errorf("active timers gauge = %v after fire, want %v", got, before)
	}
}

func TestTimerScheduler_Cancel(t *testing.T) {
	t.Parallel()

	s := NewTimerScheduler()
	var calls atomic.Int32
	s.Schedule("alert-1", 20*time.Millisecond, func() { calls.Add(1) })

	if !s.Cancel("alert-1") {
		t.Error("Cancel() = false for a pending timer")
	}
	if s.Cancel("alert-1") {
		t.Error("second Cancel() = true")
	}
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("cancelled callback ran %d times", calls.Load())
	}
}

func TestTimerScheduler_RescheduleReplaces(t *testing.T) {
	t.Parallel()

	s := NewTimerScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("alert-1", 20*time.Millisecond, func() { first.Add(1) })
	s.Schedule("alert-1", 20*time.Millisecond, func() { second.Add(1) })
	if s.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", s.Pending())
	}

	time.Sleep(80 * time.Millisecond)
	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("first=%d second=%d, want 0 and 1", first.Load(), second.Load())
	}
}

func TestTimerScheduler_Stop(t *testing.T) {
	t.Parallel()

	s := NewTimerScheduler()
	var calls atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		s.Schedule(id, 20*time.Millisecond, func() { calls.Add(1) })
	}
	s.Stop()
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 || s.Pending() != 0 {
		t.Errorf("calls=%d pending=%d after Stop", calls.Load(), s.Pending())
	}
}

func TestBuildVoiceScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		language  string
		localArea string
		wantLang  string
		contains  string
		wantErr   bool
	}{
		{"default english", "", "", "en", "police of your area", false},
		{"local area", "en", "Kochi", "en", "police of Kochi", false},
		{"trimmed area", "en", "  ", "en", "your area", false},
		{"malayalam", "ml", "Kochi", "ml", "Kochi", false},
		{"kannada", "kn", "Mysuru", "kn", "Mysuru", false},
		{"unsupported", "fr", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildVoiceScript(tt.language, tt.localArea)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildVoiceScript() error = %v", err)
			}
			if got.Language != tt.wantLang {
				t.Errorf("Language = %q, want %q", got.Language, tt.wantLang)
			}
			if !strings.Contains(got.Primary, tt.contains) {
				t.Errorf("Primary = %q, want it to contain %q", got.Primary, tt.contains)
			}
			if got.Secondary == "" {
				t.Error("Secondary is empty")
			}
		})
	}

	en, _ := BuildVoiceScript("en", "")
	if !strings.HasPrefix(en.Secondary, "You have 1 minute to enter your password") {
		t.Errorf("Secondary = %q", en.Secondary)
	}
}

func TestVoiceTemplatesCoverLanguages(t *testing.T) {
	t.Parallel()
	for _, lang := range []string{"en", "hi", "ml", "ta", "te", "kn"} {
		if _, ok := voiceTemplates[lang]; !ok {
			t.Errorf("no voice template for %q", lang)
		}
	}
}
