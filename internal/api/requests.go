// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"time"

	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/sos"
)

// locationRequest is a coordinate pair from the client. Pointers let
// "required" tell a missing coordinate from the equator.
type locationRequest struct {
	Latitude  *float64   `json:"latitude" validate:"required,latitude"`
	Longitude *float64   `json:"longitude" validate:"required,longitude"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (l locationRequest) toModel() models.Location {
	loc := models.Location{Latitude: *l.Latitude, Longitude: *l.Longitude}
	if l.Timestamp != nil {
		loc.Timestamp = l.Timestamp.UTC()
	}
	return loc
}

type contactRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,phone"`
	Email        string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Relationship string `json:"relationship,omitempty" validate:"max=50"`
	Priority     int    `json:"priority,omitempty" validate:"omitempty,gte=1,lte=10"`
	LinkedUserID string `json:"linked_user_id,omitempty" validate:"max=128"`
	Active       *bool  `json:"is_active,omitempty"`
}

func (c contactRequest) toInput() sos.ContactInput {
	return sos.ContactInput{
		Name:         c.Name,
		Phone:        c.Phone,
		Email:        c.Email,
		Relationship: c.Relationship,
		Priority:     c.Priority,
		LinkedUserID: c.LinkedUserID,
		Active:       c.Active,
	}
}

// profileRequest serves both create and update, so an omitted contact list
// is allowed here; the service rejects a create without contacts and an
// explicit empty list.
type profileRequest struct {
	FullPassword          string           `json:"full_password" validate:"max=128"`
	PartialPassword       string           `json:"partial_password" validate:"max=128"`
	BiometricEnabled      *bool            `json:"biometric_enabled,omitempty"`
	Contacts              []contactRequest `json:"emergency_contacts" validate:"omitempty,max=20,dive"`
	Enabled               *bool            `json:"is_enabled,omitempty"`
	VoiceLanguage         string           `json:"voice_alert_language,omitempty" validate:"omitempty,voicelang"`
	BackgroundPermissions *bool            `json:"background_permissions,omitempty"`
}

func (p profileRequest) toInput() sos.ProfileInput {
	in := sos.ProfileInput{
		FullPassword:          p.FullPassword,
		PartialPassword:       p.PartialPassword,
		BiometricEnabled:      p.BiometricEnabled,
		Enabled:               p.Enabled,
		VoiceLanguage:         p.VoiceLanguage,
		BackgroundPermissions: p.BackgroundPermissions,
	}
	if p.Contacts != nil {
		in.Contacts = make([]sos.ContactInput, len(p.Contacts))
		for i, c := range p.Contacts {
			in.Contacts[i] = c.toInput()
		}
	}
	return in
}

type settingsRequest struct {
	Enabled               *bool   `json:"is_enabled,omitempty"`
	BiometricEnabled      *bool   `json:"biometric_enabled,omitempty"`
	VoiceLanguage         *string `json:"voice_alert_language,omitempty" validate:"omitempty,voicelang"`
	BackgroundPermissions *bool   `json:"background_permissions,omitempty"`
}

func (s settingsRequest) toInput() sos.Settings {
	return sos.Settings{
		Enabled:               s.Enabled,
		BiometricEnabled:      s.BiometricEnabled,
		VoiceLanguage:         s.VoiceLanguage,
		BackgroundPermissions: s.BackgroundPermissions,
	}
}

type destinationRequest struct {
	locationRequest
	Address string `json:"address,omitempty" validate:"max=500"`
}

type startMonitoringRequest struct {
	TripID           string              `json:"trip_id,omitempty" validate:"max=128"`
	PlannedRoute     []locationRequest   `json:"planned_route" validate:"required,min=2,max=10000,dive"`
	Destination      *destinationRequest `json:"destination,omitempty"`
	ThresholdMeters  float64             `json:"deviation_threshold,omitempty" validate:"omitempty,gte=100,lte=5000"`
	EstimatedArrival *time.Time          `json:"estimated_arrival,omitempty"`
}

func (s startMonitoringRequest) toInput() sos.MonitoringInput {
	in := sos.MonitoringInput{
		TripID:           s.TripID,
		PlannedRoute:     make([]models.Location, len(s.PlannedRoute)),
		ThresholdMeters:  s.ThresholdMeters,
		EstimatedArrival: s.EstimatedArrival,
	}
	for i, p := range s.PlannedRoute {
		in.PlannedRoute[i] = p.toModel()
	}
	if s.Destination != nil {
		in.Destination = &models.Destination{
			Location: s.Destination.toModel(),
			Address:  s.Destination.Address,
		}
	}
	return in
}

type locationUpdateRequest struct {
	locationRequest
}

type triggerAlertRequest struct {
	AlertType    string          `json:"alert_type" validate:"required,oneof=manual_trigger tamper_detection panic"`
	Location     locationRequest `json:"location"`
	MonitoringID string          `json:"monitoring_id,omitempty" validate:"omitempty,max=128"`
	StealthMode  bool            `json:"stealth_mode,omitempty"`
}

func (t triggerAlertRequest) toInput() sos.TriggerInput {
	return sos.TriggerInput{
		Type:         models.AlertType(t.AlertType),
		Location:     t.Location.toModel(),
		MonitoringID: t.MonitoringID,
		StealthMode:  t.StealthMode,
	}
}

type verifyPasswordRequest struct {
	Password string `json:"password" validate:"required,max=128"`
}

type voiceScriptRequest struct {
	Language  string `json:"language,omitempty" validate:"omitempty,voicelang"`
	LocalArea string `json:"local_area,omitempty" validate:"max=100"`
	AlertID   string `json:"alert_id,omitempty" validate:"max=128"`
}

func (v voiceScriptRequest) toInput() sos.VoiceInput {
	return sos.VoiceInput{Language: v.Language, LocalArea: v.LocalArea, AlertID: v.AlertID}
}

// endMonitoringResponse reports whether this call ended the session.
type endMonitoringResponse struct {
	Ended bool `json:"ended"`
}
