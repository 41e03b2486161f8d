// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package sos

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/tomtom215/traveal/internal/alert"
	"github.com/tomtom215/traveal/internal/events"
	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/notify"
)

// incorrectPassword is the only message a failed verification carries.
const incorrectPassword = "incorrect password"

// TriggerInput is a client-raised alert.
type TriggerInput struct {
	Type         models.AlertType
	Location     models.Location
	MonitoringID string
	StealthMode  bool
}

// VoiceInput requests the voice check-in script. When AlertID is set the
// alert is marked as having played it.
type VoiceInput struct {
	Language  string
	LocalArea string
	AlertID   string
}

// TriggerAlert raises a manual, panic or tamper alert. Contacts are not
// contacted unless the alert escalates.
func (s *Service) TriggerAlert(ctx context.Context, userID string, in TriggerInput) (models.AlertView, error) {
	switch {
	case !in.Type.Valid():
		return models.AlertView{}, models.NewValidationError("alert_type", "unknown alert type")
	case in.Type == models.AlertTypeRouteDeviation:
		return models.AlertView{}, models.NewValidationError("alert_type", "route deviation alerts are raised by monitoring")
	}

	p, err := s.profileFor(ctx, userID)
	if err != nil {
		return models.AlertView{}, err
	}
	if !p.Enabled {
		return models.AlertView{}, models.NewValidationError("profile", "SOS is disabled for this profile")
	}
	if in.MonitoringID != "" {
		if _, err := s.GetMonitoring(ctx, userID, in.MonitoringID); err != nil {
			return models.AlertView{}, err
		}
	}

	a, err := s.trigger(ctx, alert.TriggerRequest{
		UserID:       userID,
		ProfileID:    p.ID,
		MonitoringID: in.MonitoringID,
		Type:         in.Type,
		Location:     in.Location,
		StealthMode:  in.StealthMode,
	})
	if err != nil {
		return models.AlertView{}, err
	}
	return a.View(), nil
}

// trigger creates the alert and arms its escalation timer.
func (s *Service) trigger(ctx context.Context, req alert.TriggerRequest) (*models.Alert, error) {
	a, err := s.alerts.Trigger(ctx, req)
	if err != nil {
		return nil, err
	}

	alertID, timerCtx := a.ID, context.WithoutCancel(ctx)
	s.scheduler.Schedule(alertID, s.alerts.EscalationTimeout(), func() {
		if !s.track() {
			return
		}
		defer s.wg.Done()
		s.onEscalationTimeout(timerCtx, alertID)
	})

	s.publish(ctx, events.Event{
		Action:       models.ActionAlertTriggered,
		UserID:       a.UserID,
		AlertID:      a.ID,
		MonitoringID: a.MonitoringID,
		Status:       string(a.Status),
		Details:      map[string]string{"alert_type": string(a.Type), "severity": string(a.Severity)},
	})
	return a, nil
}

// VerifyPassword checks a password against a triggered alert. The full and
// partial passwords both return verified with status resolved; only the
// server knows which one matched. Any failure, including an escalated
// alert, is the same AuthenticationError. Every call takes at least the
// configured latency floor.
func (s *Service) VerifyPassword(ctx context.Context, userID, alertID, password string) (models.VerificationResult, error) {
	start := time.Now()
	defer s.padLatency(ctx, start)

	p, err := s.profiles.GetProfileByUser(ctx, userID)
	if err != nil {
		return models.VerificationResult{}, models.NewNotFoundError("alert", alertID)
	}

	v, err := s.alerts.VerifyPassword(ctx, alertID, userID, alert.Hashes{
		Full:    p.FullPasswordHash,
		Partial: p.PartialPasswordHash,
	}, password)
	if err != nil {
		return models.VerificationResult{}, storeError("verify password", err)
	}
	a := v.Alert

	switch v.Outcome {
	case alert.OutcomeResolved:
		s.scheduler.Cancel(a.ID)
		s.publish(ctx, passwordEvent(a, models.ActionPasswordVerified, "full"))
		s.async(ctx, "status-update", func(ctx context.Context) {
			s.sendStatusUpdates(ctx, a, p, models.AlertStatusResolved)
		})

	case alert.OutcomeDuress:
		s.scheduler.Cancel(a.ID)
		s.publish(ctx, passwordEvent(a, models.ActionPasswordVerified, "duress"))
		s.async(ctx, "silent-escalation", func(ctx context.Context) {
			s.silentEscalation(ctx, a, p)
		})

	case alert.OutcomeExhausted:
		s.scheduler.Cancel(a.ID)
		s.publish(ctx, passwordEvent(a, models.ActionPasswordFailed, "exhausted"))
		s.publishEscalated(ctx, a, "attempts_exhausted")
		s.async(ctx, "escalation", func(ctx context.Context) {
			s.escalationFollowUp(ctx, a, p)
		})

	case alert.OutcomeRejected:
		s.publish(ctx, passwordEvent(a, models.ActionPasswordFailed, "rejected"))
	}

	if !v.Outcome.Verified() {
		return models.VerificationResult{}, models.NewAuthenticationError(incorrectPassword)
	}
	return models.VerificationResult{
		AlertID:  a.ID,
		Verified: true,
		Status:   models.AlertStatusResolved,
	}, nil
}

// padLatency sleeps until floor has elapsed since start.
func (s *Service) padLatency(ctx context.Context, start time.Time) {
	remaining := s.cfg.VerifyLatencyFloor - time.Since(start)
	if remaining <= 0 {
		return
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// CancelAlert stands down a triggered alert. Contacts already told about
// it receive a cancelled status update.
func (s *Service) CancelAlert(ctx context.Context, userID, alertID string) (models.AlertView, error) {
	a, err := s.alerts.Cancel(ctx, alertID, userID)
	if err != nil {
		return models.AlertView{}, storeError("cancel alert", err)
	}
	s.scheduler.Cancel(a.ID)

	s.publish(ctx, events.Event{
		Action:       models.ActionAlertCancelled,
		UserID:       a.UserID,
		AlertID:      a.ID,
		MonitoringID: a.MonitoringID,
		Status:       string(a.Status),
	})

	if len(a.NotifiedContactIDs) > 0 {
		p, err := s.profiles.GetProfile(ctx, a.ProfileID)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("alert_id", a.ID).Msg("Profile unavailable for cancellation update")
		} else {
			s.async(ctx, "status-update", func(ctx context.Context) {
				s.sendStatusUpdates(ctx, a, p, models.AlertStatusCancelled)
			})
		}
	}
	return a.View(), nil
}

// ListActiveAlerts returns the user's triggered alerts, newest first.
func (s *Service) ListActiveAlerts(ctx context.Context, userID string) ([]models.AlertView, error) {
	active, err := s.alerts.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]models.AlertView, len(active))
	for i, a := range active {
		views[i] = a.View()
	}
	return views, nil
}

// VoiceScript returns the check-in script in the requested language.
func (s *Service) VoiceScript(ctx context.Context, userID string, in VoiceInput) (VoiceScript, error) {
	script, err := BuildVoiceScript(in.Language, in.LocalArea)
	if err != nil {
		return VoiceScript{}, err
	}
	if in.AlertID == "" {
		script.IsTest = true
		return script, nil
	}
	if err := s.alerts.MarkVoiceAlertPlayed(ctx, in.AlertID, userID); err != nil {
		return VoiceScript{}, storeError("mark voice alert", err)
	}
	return script, nil
}

// onEscalationTimeout runs when an alert's window expires. A verification
// that won the race leaves nothing to do.
func (s *Service) onEscalationTimeout(ctx context.Context, alertID string) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
	a, escalated, err := s.alerts.EscalateOnTimeout(ctx, alertID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("alert_id", alertID).Msg("Escalation on timeout failed")
		return
	}
	if !escalated {
		return
	}

	s.publishEscalated(ctx, a, "timeout")
	p, err := s.profiles.GetProfile(ctx, a.ProfileID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("alert_id", a.ID).Msg("Profile unavailable for escalation")
		s.reportToAuthorities(ctx, a)
		return
	}
	s.escalationFollowUp(ctx, a, p)
}

// escalationFollowUp ends the linked session, alerts the contacts and
// reports to the authorities.
func (s *Service) escalationFollowUp(ctx context.Context, a *models.Alert, p *models.Profile) {
	if a.MonitoringID != "" {
		if _, err := s.endMonitoring(ctx, a.UserID, a.MonitoringID); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("monitoring_id", a.MonitoringID).Msg("Failed to end monitoring after escalation")
		}
	}
	s.notifyEscalation(ctx, a, p)
	s.reportToAuthorities(ctx, a)
}

// silentEscalation handles a duress match. The alert reads as resolved
// everywhere the user can see; contacts and authorities are told it
// escalated.
func (s *Service) silentEscalation(ctx context.Context, a *models.Alert, p *models.Profile) {
	s.reportToAuthorities(ctx, a)
	s.notifyEscalation(ctx, a, p)
}

// notifyEscalation runs the full dispatch if contacts were never told,
// and an escalated status update otherwise.
func (s *Service) notifyEscalation(ctx context.Context, a *models.Alert, p *models.Profile) {
	if a.ContactsNotified {
		s.sendStatusUpdates(ctx, a, p, models.AlertStatusEscalated)
		return
	}
	s.dispatch(ctx, a, p)
}

// dispatch notifies every contact and records who was reached. It returns
// the updated alert, or nil if nothing was recorded.
func (s *Service) dispatch(ctx context.Context, a *models.Alert, p *models.Profile) *models.Alert {
	res := s.notifier.Dispatch(ctx, p.Contacts, a.TriggerLocation, a.Type, notify.AllChannels)

	s.publish(ctx, events.Event{
		Action:       models.ActionContactsNotified,
		UserID:       a.UserID,
		AlertID:      a.ID,
		MonitoringID: a.MonitoringID,
		Details: map[string]string{
			"contacts": strconv.Itoa(len(res.Contacts)),
			"sent":     strconv.Itoa(res.Sent),
			"failed":   strconv.Itoa(res.Failed),
		},
	})

	ids := res.NotifiedContactIDs()
	if len(ids) == 0 {
		return nil
	}
	if err := s.alerts.RecordNotification(ctx, a.ID, ids); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("alert_id", a.ID).Msg("Failed to record notified contacts")
		return nil
	}
	updated, err := s.alerts.Get(ctx, a.ID, a.UserID)
	if err != nil {
		return nil
	}
	return updated
}

// sendStatusUpdates tells previously notified contacts the alert's status.
func (s *Service) sendStatusUpdates(ctx context.Context, a *models.Alert, p *models.Profile, status models.AlertStatus) {
	if len(a.NotifiedContactIDs) == 0 {
		return
	}
	loc := a.TriggerLocation
	sent := 0
	for _, c := range p.Contacts {
		if !slices.Contains(a.NotifiedContactIDs, c.ID) {
			continue
		}
		if s.notifier.SendStatusUpdate(ctx, c, status, &loc) {
			sent++
		}
	}

	s.publish(ctx, events.Event{
		Action:       models.ActionStatusUpdateSent,
		UserID:       a.UserID,
		AlertID:      a.ID,
		MonitoringID: a.MonitoringID,
		Details: map[string]string{
			"update": string(status),
			"sent":   strconv.Itoa(sent),
		},
	})
}

func (s *Service) reportToAuthorities(ctx context.Context, a *models.Alert) {
	report := notify.AuthorityReport{
		AlertID:      a.ID,
		UserID:       a.UserID,
		AlertType:    a.Type,
		Severity:     models.SeverityCritical,
		Location:     a.TriggerLocation,
		MonitoringID: a.MonitoringID,
		TriggeredAt:  a.CreatedAt,
	}
	if a.MonitoringID != "" {
		if m, err := s.monitor.Get(ctx, a.MonitoringID); err == nil {
			report.Location = m.LastKnownLocation
			if m.Destination != nil {
				dest := m.Destination.Location
				report.Destination = &dest
			}
		}
	}
	if err := s.notifier.ReportToAuthorities(ctx, report); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("alert_id", a.ID).Msg("Authority report failed")
	}
}

func (s *Service) publishEscalated(ctx context.Context, a *models.Alert, reason string) {
	s.publish(ctx, events.Event{
		Action:       models.ActionAlertEscalated,
		UserID:       a.UserID,
		AlertID:      a.ID,
		MonitoringID: a.MonitoringID,
		Status:       string(models.AlertStatusEscalated),
		Details:      map[string]string{"reason": reason},
	})
}

// passwordEvent builds a verification event. The outcome detail stays in
// the server-side log; Status is always the public status.
func passwordEvent(a *models.Alert, action, outcome string) events.Event {
	e := events.Event{
		Action:       action,
		UserID:       a.UserID,
		AlertID:      a.ID,
		MonitoringID: a.MonitoringID,
		Details: map[string]string{
			"outcome":  outcome,
			"attempts": strconv.Itoa(a.PasswordAttempts),
		},
	}
	if a.IsTerminal() && a.Status != models.AlertStatusEscalated {
		e.Status = string(models.AlertStatusResolved)
	}
	return e
}
