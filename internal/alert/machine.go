// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package alert

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/metrics"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/store"
)

// DefaultEscalationTimeout matches the "You have 1 minute" voice script.
const DefaultEscalationTimeout = 60 * time.Second

// errNoTransition aborts an update that would not change the alert.
var errNoTransition = errors.New("alert: no transition")

// Verifier checks a candidate password against a stored hash.
type Verifier interface {
	Verify(password, encoded string) (bool, error)
}

// Hashes are the stored password hashes an alert is verified against.
type Hashes struct {
	Full    string
	Partial string
}

// Outcome is the internal result of a password verification.
type Outcome int

const (
	// OutcomeRejected: wrong password, alert still triggered.
	OutcomeRejected Outcome = iota
	// OutcomeResolved: full password matched.
	OutcomeResolved
	// OutcomeDuress: partial password matched. Externally identical to
	// OutcomeResolved.
	OutcomeDuress
	// OutcomeExhausted: wrong password on the last allowed attempt; the
	// alert escalated.
	OutcomeExhausted
	// OutcomeLocked: the alert had already escalated.
	OutcomeLocked
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeResolved:
		return "resolved"
	case OutcomeDuress:
		return "duress"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Verified reports whether the outcome looks like success to the caller.
func (o Outcome) Verified() bool {
	return o == OutcomeResolved || o == OutcomeDuress
}

// Verification pairs the updated alert with the internal outcome.
type Verification struct {
	Alert   *models.Alert
	Outcome Outcome
}

// TriggerRequest describes a new alert.
type TriggerRequest struct {
	UserID            string
	ProfileID         string
	MonitoringID      string
	Type              models.AlertType
	Location          models.Location
	DeviationDistance float64
	StealthMode       bool
}

// Config tunes the state machine.
type Config struct {
	MaxPasswordAttempts int
	EscalationTimeout   time.Duration
}

// Machine drives the alert lifecycle. Every transition runs inside a single
// store update so concurrent calls for one alert are serialized.
type Machine struct {
	store    store.AlertStore
	verifier Verifier
	cfg      Config
	now      func() time.Time
}

// NewMachine creates a Machine. Zero config fields take their defaults.
func NewMachine(s store.AlertStore, v Verifier, cfg Config) *Machine {
	if cfg.MaxPasswordAttempts <= 0 {
		cfg.MaxPasswordAttempts = models.DefaultMaxPasswordAttempts
	}
	if cfg.EscalationTimeout <= 0 {
		cfg.EscalationTimeout = DefaultEscalationTimeout
	}
	return &Machine{store: s, verifier: v, cfg: cfg, now: time.Now}
}

// SetClock replaces the time source. Tests only.
func (m *Machine) SetClock(now func() time.Time) {
	m.now = now
}

// EscalationTimeout returns the window a triggered alert has before it
// escalates.
func (m *Machine) EscalationTimeout() time.Duration {
	return m.cfg.EscalationTimeout
}

// Trigger creates an alert in the triggered state.
func (m *Machine) Trigger(ctx context.Context, req TriggerRequest) (*models.Alert, error) {
	if !req.Type.Valid() {
		return nil, models.NewValidationError("alert_type", "unknown alert type")
	}
	if err := req.Location.Validate(); err != nil {
		return nil, models.NewValidationError("location", err.Error())
	}

	now := m.now().UTC()
	loc := req.Location
	if loc.Timestamp.IsZero() {
		loc.Timestamp = now
	}

	a := &models.Alert{
		ID:                  uuid.NewString(),
		UserID:              req.UserID,
		ProfileID:           req.ProfileID,
		MonitoringID:        req.MonitoringID,
		Type:                req.Type,
		Severity:            SeverityFor(req.Type, req.DeviationDistance),
		Status:              models.AlertStatusTriggered,
		TriggerLocation:     loc,
		DeviationDistance:   req.DeviationDistance,
		MaxPasswordAttempts: m.cfg.MaxPasswordAttempts,
		StealthMode:         req.StealthMode,
		EscalationDeadline:  now.Add(m.cfg.EscalationTimeout),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := m.store.CreateAlert(ctx, a); err != nil {
		return nil, models.NewInternalError("create alert", err)
	}

	metrics.AlertsTriggered.WithLabelValues(string(a.Type)).Inc()
	logging.Ctx(ctx).Warn().
		Str("alert_id", a.ID).
		Str("alert_type", string(a.Type)).
		Str("severity", string(a.Severity)).
		Msg("SOS alert triggered")
	return a, nil
}

// Get returns an alert owned by userID.
func (m *Machine) Get(ctx context.Context, alertID, userID string) (*models.Alert, error) {
	a, err := m.store.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, models.NewNotFoundError("alert", alertID)
	}
	return a, nil
}

// VerifyPassword checks candidate against both stored hashes and advances
// the alert. Both hashes are always checked, and the attempt counter is
// incremented in the same update as the check.
//
// A resolved, cancelled, unknown or foreign alert yields a NotFoundError.
// An escalated alert yields OutcomeLocked without touching the counter.
// The client's partial-password claim is not an input: a full password
// match always wins.
func (m *Machine) VerifyPassword(ctx context.Context, alertID, userID string, hashes Hashes, candidate string) (Verification, error) {
	var outcome Outcome
	a, err := m.store.UpdateAlert(ctx, alertID, func(a *models.Alert) error {
		if a.UserID != userID {
			return models.NewNotFoundError("alert", alertID)
		}
		switch a.Status {
		case models.AlertStatusTriggered:
		case models.AlertStatusEscalated:
			outcome = OutcomeLocked
			return errNoTransition
		default:
			return models.NewNotFoundError("alert", alertID)
		}

		fullMatch := m.check(ctx, candidate, hashes.Full)
		partialMatch := m.check(ctx, candidate, hashes.Partial)

		if a.PasswordAttempts < a.MaxPasswordAttempts {
			a.PasswordAttempts++
		}
		now := m.now().UTC()
		a.UpdatedAt = now

		switch {
		case fullMatch:
			outcome = OutcomeResolved
			a.Status = models.AlertStatusResolved
			a.ResolvedAt = &now
		case partialMatch:
			outcome = OutcomeDuress
			a.Status = models.AlertStatusResolved
			a.ResolvedAt = &now
			a.Duress = true
			a.AuthoritiesNotified = true
		case a.PasswordAttempts >= a.MaxPasswordAttempts:
			outcome = OutcomeExhausted
			escalate(a, now)
		default:
			outcome = OutcomeRejected
		}
		return nil
	})
	if errors.Is(err, errNoTransition) {
		current, gerr := m.store.GetAlert(ctx, alertID)
		if gerr != nil {
			return Verification{}, gerr
		}
		metrics.RecordVerification(false)
		return Verification{Alert: current, Outcome: outcome}, nil
	}
	if err != nil {
		return Verification{}, err
	}

	metrics.RecordVerification(outcome.Verified())
	if a.IsTerminal() {
		metrics.AlertTransitions.WithLabelValues(string(a.Status)).Inc()
	}
	// Outcome is never logged.
	logging.Ctx(ctx).Info().
		Str("alert_id", a.ID).
		Str("status", string(a.Status)).
		Msg("Alert password verification processed")
	return Verification{Alert: a, Outcome: outcome}, nil
}

// check runs one hash comparison. A malformed stored hash counts as a
// mismatch.
func (m *Machine) check(ctx context.Context, candidate, encoded string) bool {
	if encoded == "" {
		return false
	}
	ok, err := m.verifier.Verify(candidate, encoded)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Stored password hash could not be checked")
		return false
	}
	return ok
}

// Cancel moves a triggered alert to cancelled. Any other state yields a
// NotFoundError.
func (m *Machine) Cancel(ctx context.Context, alertID, userID string) (*models.Alert, error) {
	a, err := m.store.UpdateAlert(ctx, alertID, func(a *models.Alert) error {
		if a.UserID != userID || a.Status != models.AlertStatusTriggered {
			return models.NewNotFoundError("alert", alertID)
		}
		now := m.now().UTC()
		a.Status = models.AlertStatusCancelled
		a.ResolvedAt = &now
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AlertTransitions.WithLabelValues(string(a.Status)).Inc()
	logging.Ctx(ctx).Info().Str("alert_id", a.ID).Msg("SOS alert cancelled")
	return a, nil
}

// EscalateOnTimeout escalates the alert if it is still triggered. It
// returns false, with no error, when the alert already reached a terminal
// state.
func (m *Machine) EscalateOnTimeout(ctx context.Context, alertID string) (*models.Alert, bool, error) {
	a, err := m.store.UpdateAlert(ctx, alertID, func(a *models.Alert) error {
		if a.Status != models.AlertStatusTriggered {
			return errNoTransition
		}
		escalate(a, m.now().UTC())
		return nil
	})
	if errors.Is(err, errNoTransition) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	metrics.AlertTransitions.WithLabelValues(string(a.Status)).Inc()
	logging.Ctx(ctx).Warn().Str("alert_id", a.ID).Msg("SOS alert escalated after timeout")
	return a, true, nil
}

// RecordNotification marks contacts as notified for a later status update.
// It does not change the alert status.
func (m *Machine) RecordNotification(ctx context.Context, alertID string, contactIDs []string) error {
	if len(contactIDs) == 0 {
		return nil
	}
	_, err := m.store.UpdateAlert(ctx, alertID, func(a *models.Alert) error {
		seen := make(map[string]bool, len(a.NotifiedContactIDs))
		for _, id := range a.NotifiedContactIDs {
			seen[id] = true
		}
		for _, id := range contactIDs {
			if !seen[id] {
				a.NotifiedContactIDs = append(a.NotifiedContactIDs, id)
				seen[id] = true
			}
		}
		a.ContactsNotified = true
		a.UpdatedAt = m.now().UTC()
		return nil
	})
	return err
}

// MarkVoiceAlertPlayed records that the client played the voice check-in.
func (m *Machine) MarkVoiceAlertPlayed(ctx context.Context, alertID, userID string) error {
	_, err := m.store.UpdateAlert(ctx, alertID, func(a *models.Alert) error {
		if a.UserID != userID {
			return models.NewNotFoundError("alert", alertID)
		}
		a.VoiceAlertPlayed = true
		return nil
	})
	return err
}

// ListActive returns the user's triggered alerts, newest first.
func (m *Machine) ListActive(ctx context.Context, userID string) ([]*models.Alert, error) {
	all, err := m.store.ListAlertsByUser(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError("list alerts", err)
	}
	active := make([]*models.Alert, 0, len(all))
	for _, a := range all {
		if a.Status == models.AlertStatusTriggered {
			active = append(active, a)
		}
	}
	return active, nil
}

func escalate(a *models.Alert, now time.Time) {
	a.Status = models.AlertStatusEscalated
	a.Severity = models.SeverityCritical
	a.AuthoritiesNotified = true
	a.ResolvedAt = &now
	a.UpdatedAt = now
}
