// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package models

import (
	"errors"
	"math"
	"time"
)

// AlertType identifies what raised an SOS alert.
type AlertType string

// Alert types. RouteDeviation is raised automatically by the route monitor;
// the others come from the client.
const (
	AlertTypeRouteDeviation  AlertType = "route_deviation"
	AlertTypeManualTrigger   AlertType = "manual_trigger"
	AlertTypeTamperDetection AlertType = "tamper_detection"
	AlertTypePanic           AlertType = "panic"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeRouteDeviation, AlertTypeManualTrigger, AlertTypeTamperDetection, AlertTypePanic:
		return true
	}
	return false
}

// AlertStatus is the lifecycle state of an alert. Triggered is the only
// non-terminal status.
type AlertStatus string

// Alert statuses.
const (
	AlertStatusTriggered AlertStatus = "triggered"
	AlertStatusResolved  AlertStatus = "resolved"
	AlertStatusEscalated AlertStatus = "escalated"
	AlertStatusCancelled AlertStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusEscalated || s == AlertStatusCancelled
}

// Severity ranks how urgent an alert is.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultMaxPasswordAttempts is the attempt ceiling for a new alert.
const DefaultMaxPasswordAttempts = 3

// VoiceLanguages lists the supported voice alert languages.
var VoiceLanguages = []string{"en", "hi", "ml", "ta", "te", "kn"}

// Location is an observed or planned geographic point.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	switch {
	case math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude):
		return errors.New("coordinates must be numbers")
	case l.Latitude < -90 || l.Latitude > 90:
		return errors.New("latitude must be between -90 and 90")
	case l.Longitude < -180 || l.Longitude > 180:
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// Destination is the end point of a monitored trip.
type Destination struct {
	Location
	Address string `json:"address,omitempty"`
}

// EmergencyContact is a person notified when an alert is raised.
// Lower Priority values are contacted first.
type EmergencyContact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Priority     int    `json:"priority"`
	Active       bool   `json:"is_active"`
	// LinkedUserID is set when the contact is also an app user who can
	// receive in-app push notifications.
	LinkedUserID string `json:"linked_user_id,omitempty"`
}

// Dispatchable reports whether the contact can be reached on any channel.
func (c EmergencyContact) Dispatchable() bool {
	return c.Active && (c.Phone != "" || c.Email != "" || c.LinkedUserID != "")
}

// Profile holds a user's SOS configuration. The password hashes are stored
// with the record but never returned to clients; use View for API output.
type Profile struct {
	ID                    string             `json:"id"`
	UserID                string             `json:"user_id"`
	FullPasswordHash      string             `json:"full_password_hash"`
	PartialPasswordHash   string             `json:"partial_password_hash"`
	BiometricEnabled      bool               `json:"biometric_enabled"`
	Contacts              []EmergencyContact `json:"emergency_contacts"`
	Enabled               bool               `json:"is_enabled"`
	VoiceLanguage         string             `json:"voice_alert_language"`
	BackgroundPermissions bool               `json:"background_permissions"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// ProfileView is the public representation of a Profile.
type ProfileView struct {
	ID                    string             `json:"id"`
	UserID                string             `json:"user_id"`
	BiometricEnabled      bool               `json:"biometric_enabled"`
	Contacts              []EmergencyContact `json:"emergency_contacts"`
	Enabled               bool               `json:"is_enabled"`
	VoiceLanguage         string             `json:"voice_alert_language"`
	BackgroundPermissions bool               `json:"background_permissions"`
	ActiveAlerts          int                `json:"active_alerts"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// View returns the public representation without password hashes.
func (p *Profile) View(activeAlerts int) ProfileView {
	return ProfileView{
		ID:                    p.ID,
		UserID:                p.UserID,
		BiometricEnabled:      p.BiometricEnabled,
		Contacts:              append([]EmergencyContact(nil), p.Contacts...),
		Enabled:               p.Enabled,
		VoiceLanguage:         p.VoiceLanguage,
		BackgroundPermissions: p.BackgroundPermissions,
		ActiveAlerts:          activeAlerts,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Contacts = append([]EmergencyContact(nil), p.Contacts...)
	return &c
}

// Monitoring is a route-monitoring session for one trip. PlannedRoute and
// ThresholdMeters are fixed at creation; ActualRoute is append-only.
type Monitoring struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id"`
	ProfileID         string       `json:"profile_id"`
	TripID            string       `json:"trip_id,omitempty"`
	PlannedRoute      []Location   `json:"planned_route"`
	ActualRoute       []Location   `json:"actual_route"`
	Destination       *Destination `json:"destination,omitempty"`
	ThresholdMeters   float64      `json:"deviation_threshold"`
	Active            bool         `json:"is_active"`
	StartTime         time.Time    `json:"start_time"`
	EndTime           *time.Time   `json:"end_time,omitempty"`
	EstimatedArrival  *time.Time   `json:"estimated_arrival,omitempty"`
	LastKnownLocation Location     `json:"last_known_location"`
	DeviationDetected bool         `json:"deviation_detected"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Clone returns a deep copy of the session.
func (m *Monitoring) Clone() *Monitoring {
	c := *m
	c.PlannedRoute = append([]Location(nil), m.PlannedRoute...)
	c.ActualRoute = append([]Location(nil), m.ActualRoute...)
	if m.Destination != nil {
		d := *m.Destination
		c.Destination = &d
	}
	if m.EndTime != nil {
		t := *m.EndTime
		c.EndTime = &t
	}
	if m.EstimatedArrival != nil {
		t := *m.EstimatedArrival
		c.EstimatedArrival = &t
	}
	return &c
}

// DeviationCheck is the outcome of one location update.
type DeviationCheck struct {
	MonitoringID      string  `json:"monitoring_id"`
	DistanceFromRoute float64 `json:"distance_from_route"`
	DeviationDetected bool    `json:"deviation_detected"`
	ThresholdMeters   float64 `json:"threshold_meters"`
	// PreviouslyDeviated is the flag value before this update. The
	// orchestrator uses it to detect the false to true edge.
	PreviouslyDeviated bool `json:"-"`
}

// NewlyDeviated reports whether this update crossed from on-route to off-route.
func (d DeviationCheck) NewlyDeviated() bool {
	return d.DeviationDetected && !d.PreviouslyDeviated
}

// Alert is a triggered emergency. Status only moves forward from
// Triggered to one terminal status.
type Alert struct {
	ID                  string      `json:"id"`
	UserID              string      `json:"user_id"`
	ProfileID           string      `json:"profile_id"`
	MonitoringID        string      `json:"monitoring_id,omitempty"`
	Type                AlertType   `json:"alert_type"`
	Severity            Severity    `json:"severity"`
	Status              AlertStatus `json:"status"`
	TriggerLocation     Location    `json:"trigger_location"`
	DeviationDistance   float64     `json:"deviation_distance,omitempty"`
	VoiceAlertPlayed    bool        `json:"voice_alert_played"`
	PasswordAttempts    int         `json:"password_attempts"`
	MaxPasswordAttempts int         `json:"max_password_attempts"`
	StealthMode         bool        `json:"stealth_mode"`
	AuthoritiesNotified bool        `json:"authorities_notified"`
	ContactsNotified    bool        `json:"contacts_notified"`
	// Duress records that the alert was stood down with the partial
	// password. Never exposed outside the service.
	Duress             bool       `json:"duress"`
	NotifiedContactIDs []string   `json:"notified_contact_ids,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	EscalationDeadline time.Time  `json:"escalation_deadline"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the alert has left the triggered state.
func (a *Alert) IsTerminal() bool {
	return a.Status.Terminal()
}

// Clone returns a deep copy of the alert.
func (a *Alert) Clone() *Alert {
	c := *a
	c.NotifiedContactIDs = append([]string(nil), a.NotifiedContactIDs...)
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// AlertView is the public representation of an alert. It omits the
// attempt counter, authority and duress bookkeeping.
type AlertView struct {
	ID              string      `json:"id"`
	MonitoringID    string      `json:"monitoring_id,omitempty"`
	Type            AlertType   `json:"alert_type"`
	Severity        Severity    `json:"severity"`
	Status          AlertStatus `json:"status"`
	TriggerLocation Location    `json:"trigger_location"`
	StealthMode     bool        `json:"stealth_mode"`
	CreatedAt       time.Time   `json:"created_at"`
}

// View returns the public representation of the alert.
func (a *Alert) View() AlertView {
	return AlertView{
		ID:              a.ID,
		MonitoringID:    a.MonitoringID,
		Type:            a.Type,
		Severity:        a.Severity,
		Status:          a.Status,
		TriggerLocation: a.TriggerLocation,
		StealthMode:     a.StealthMode,
		CreatedAt:       a.CreatedAt,
	}
}

// VerificationResult is the response to a password verification. A full
// password match and a duress match produce identical values.
type VerificationResult struct {
	AlertID  string      `json:"alert_id"`
	Verified bool        `json:"verified"`
	Status   AlertStatus `json:"status"`
}

// ActionLog is a server-side audit record of an SOS lifecycle step.
type ActionLog struct {
	ID           string            `json:"id"`
	Action       string            `json:"action"`
	AlertID      string            `json:"alert_id,omitempty"`
	MonitoringID string            `json:"monitoring_id,omitempty"`
	UserID       string            `json:"user_id"`
	Details      map[string]string `json:"details,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Action log action names.
const (
	ActionAlertTriggered    = "alert_triggered"
	ActionPasswordVerified  = "password_verified"
	ActionPasswordFailed    = "password_failed"
	ActionAlertEscalated    = "alert_escalated"
	ActionAlertCancelled    = "alert_cancelled"
	ActionContactsNotified  = "contacts_notified"
	ActionStatusUpdateSent  = "status_update_sent"
	ActionMonitoringStarted = "monitoring_started"
	ActionMonitoringEnded   = "monitoring_ended"
)
