// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package notify

import (
	"context"

	"github.com/tomtom215/traveal/internal/logging"
)

// LogSender implements every channel by writing a log line. It is the
// development provider for SMS, email, push and authority reports.
type LogSender struct{}

// SendSMS implements SMSSender.
func (LogSender) SendSMS(ctx context.Context, to, message string) error {
	logging.Ctx(ctx).Info().
		Str("provider", "log").
		Str("to", logging.MaskPhone(to)).
		Int("length", len(message)).
		Msg("SMS send (log provider)")
	return nil
}

// SendEmail implements EmailSender.
func (LogSender) SendEmail(ctx context.Context, to, subject, _ string) error {
	logging.Ctx(ctx).Info().
		Str("provider", "log").
		Str("to", logging.MaskEmail(to)).
		Str("subject", subject).
		Msg("Email send (log provider)")
	return nil
}

// SendPush implements PushSender.
func (LogSender) SendPush(ctx context.Context, userID, title, _ string, _ map[string]string) error {
	logging.Ctx(ctx).Info().
		Str("provider", "log").
		Str("user_id", userID).
		Str("title", title).
		Msg("Push send (log provider)")
	return nil
}

// ReportAlert implements AuthorityReporter.
func (LogSender) ReportAlert(ctx context.Context, report AuthorityReport) error {
	logging.Ctx(ctx).Warn().
		Str("provider", "log").
		Str("alert_id", report.AlertID).
		Str("severity", string(report.Severity)).
		Msg("Authority report (log provider)")
	return nil
}
