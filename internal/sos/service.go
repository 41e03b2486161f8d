// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package sos

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/traveal/internal/alert"
	"github.com/tomtom215/traveal/internal/credential"
	"github.com/tomtom215/traveal/internal/events"
	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/notify"
	"github.com/tomtom215/traveal/internal/route"
	"github.com/tomtom215/traveal/internal/store"
)

// DefaultVerifyLatencyFloor is the minimum duration of a password
// verification call.
const DefaultVerifyLatencyFloor = 300 * time.Millisecond

// Notifier fans alerts out to contacts and authorities. *notify.Dispatcher
// implements it.
type Notifier interface {
	Dispatch(ctx context.Context, contacts []models.EmergencyContact, loc models.Location, alertType models.AlertType, channels []notify.Channel) notify.FanoutResult
	SendStatusUpdate(ctx context.Context, contact models.EmergencyContact, status models.AlertStatus, loc *models.Location) bool
	ReportToAuthorities(ctx context.Context, report notify.AuthorityReport) error
}

// Publisher emits lifecycle events. *events.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

// Deps are the collaborators of a Service. Events and Scheduler are
// optional.
type Deps struct {
	Profiles  store.ProfileStore
	Monitor   *route.Monitor
	Alerts    *alert.Machine
	Hasher    *credential.Hasher
	Notifier  Notifier
	Events    Publisher
	Scheduler Scheduler
}

// Config tunes a Service.
type Config struct {
	// VerifyLatencyFloor pads every password verification to at least
	// this duration. Negative disables padding.
	VerifyLatencyFloor time.Duration
}

// Service is the only entry point the HTTP layer talks to. It composes the
// route monitor, the alert state machine and the notification fan-out, and
// owns the escalation timer of every triggered alert.
type Service struct {
	profiles  store.ProfileStore
	monitor   *route.Monitor
	alerts    *alert.Machine
	hasher    *credential.Hasher
	notifier  Notifier
	events    Publisher
	scheduler Scheduler
	cfg       Config

	// wg tracks follow-up work running after a response was returned.
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New creates a Service.
func New(deps Deps, cfg Config) *Service {
	if cfg.VerifyLatencyFloor == 0 {
		cfg.VerifyLatencyFloor = DefaultVerifyLatencyFloor
	}
	if deps.Events == nil {
		deps.Events = nopPublisher{}
	}
	if deps.Scheduler == nil {
		deps.Scheduler = NewTimerScheduler()
	}
	return &Service{
		profiles:  deps.Profiles,
		monitor:   deps.Monitor,
		alerts:    deps.Alerts,
		hasher:    deps.Hasher,
		notifier:  deps.Notifier,
		events:    deps.Events,
		scheduler: deps.Scheduler,
		cfg:       cfg,
	}
}

// Shutdown stops every escalation timer and waits for follow-up work to
// finish or ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.scheduler.Stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// async runs fn after the current request returns. The request's values
// (request id, correlation id) are kept but its cancellation is not.
func (s *Service) async(ctx context.Context, name string, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	if !s.track() {
		logging.Ctx(ctx).Warn().Str("task", name).Msg("SOS follow-up task skipped: shutting down")
		return
	}
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.Ctx(ctx).Error().Interface("panic", r).Str("task", name).Msg("SOS follow-up task panicked")
			}
		}()
		fn(ctx)
	}()
}

// track registers one unit of background work. It fails after Shutdown.
func (s *Service) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	s.events.Publish(ctx, e)
}

// profileFor returns the user's profile, or a NotFoundError naming the
// profile.
func (s *Service) profileFor(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.profiles.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, storeError("get profile", err)
	}
	return p, nil
}

// storeError keeps typed errors and wraps anything else as internal.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrAuthentication),
		errors.Is(err, models.ErrInternal):
		return err
	default:
		return models.NewInternalError(op, err)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Event) {}
