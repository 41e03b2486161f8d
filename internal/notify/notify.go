// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package notify fans SOS alerts out to emergency contacts.
//
// Channels:
//   - SMS: HTTP gateway (resty) or log-only
//   - Email: SMTP or log-only
//   - Push: HTTP gateway, in-app websocket hub, or log-only
//   - Authorities: HTTP webhook or log-only
//
// Every channel call is independent. A failing call is recorded against its
// contact and never cancels the others. Each channel sits behind its own
// circuit breaker, and calls run with bounded concurrency.
//
// Security:
//   - Phone numbers and email addresses are masked in logs
//   - Gateway API keys are never logged
//   - Payloads never mention how an alert was resolved beyond its public
//     status
package notify

import (
	"context"
	"time"

	"github.com/tomtom215/traveal/internal/models"
)

// Channel identifies a delivery channel.
type Channel string

// Delivery channels.
const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// AllChannels is the default channel set for a dispatch.
var AllChannels = []Channel{ChannelSMS, ChannelEmail, ChannelPush}

// authoritiesBreaker names the breaker guarding authority reports.
const authoritiesBreaker = "authorities"

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSender delivers a plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// PushSender delivers an in-app notification to a user.
type PushSender interface {
	SendPush(ctx context.Context, userID, title, body string, data map[string]string) error
}

// AuthorityReporter forwards an escalated alert to the authorities.
type AuthorityReporter interface {
	ReportAlert(ctx context.Context, report AuthorityReport) error
}

// AuthorityReport is the payload sent to the authorities. It carries the
// data needed to respond, never the password outcome.
type AuthorityReport struct {
	AlertID      string           `json:"alert_id"`
	UserID       string           `json:"user_id"`
	AlertType    models.AlertType `json:"alert_type"`
	Severity     models.Severity  `json:"severity"`
	Location     models.Location  `json:"location"`
	Destination  *models.Location `json:"destination,omitempty"`
	MonitoringID string           `json:"monitoring_id,omitempty"`
	TriggeredAt  time.Time        `json:"triggered_at"`
	ReportedAt   time.Time        `json:"reported_at"`
}

// ChannelResult is the outcome of one channel call for one contact.
type ChannelResult struct {
	Channel Channel `json:"channel"`
	Sent    bool    `json:"sent"`
	Error   string  `json:"error,omitempty"`
}

// ContactResult aggregates the channel calls for one contact.
type ContactResult struct {
	ContactID string          `json:"contact_id"`
	Name      string          `json:"name"`
	Sent      int             `json:"sent"`
	Failed    int             `json:"failed"`
	Channels  []ChannelResult `json:"channels"`
}

// Notified reports whether at least one channel reached the contact.
func (c ContactResult) Notified() bool {
	return c.Sent > 0
}

// FanoutResult aggregates a dispatch. Contacts are in dispatch order.
type FanoutResult struct {
	Sent     int             `json:"sent"`
	Failed   int             `json:"failed"`
	Contacts []ContactResult `json:"contacts"`
}

// NotifiedContactIDs returns the contacts reached on at least one channel.
func (r FanoutResult) NotifiedContactIDs() []string {
	var ids []string
	for _, c := range r.Contacts {
		if c.Notified() {
			ids = append(ids, c.ContactID)
		}
	}
	return ids
}
