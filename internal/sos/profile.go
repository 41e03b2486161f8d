// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package sos

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/traveal/internal/credential"
	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/store"
)

// defaultContactPriority is used when a contact is added without one.
const defaultContactPriority = 1

// ContactInput describes an emergency contact supplied by the client.
type ContactInput struct {
	Name         string
	Phone        string
	Email        string
	Relationship string
	Priority     int
	LinkedUserID string
	// Active defaults to true.
	Active *bool
}

// ProfileInput is a profile create or update. Passwords equal to
// credential.Unchanged (or empty) keep the stored hash on update. Nil
// pointers and a nil Contacts slice keep the stored value.
type ProfileInput struct {
	FullPassword          string
	PartialPassword       string
	BiometricEnabled      *bool
	Contacts              []ContactInput
	Enabled               *bool
	VoiceLanguage         string
	BackgroundPermissions *bool
}

// Settings changes profile flags only. Nil fields are left unchanged.
type Settings struct {
	Enabled               *bool
	BiometricEnabled      *bool
	VoiceLanguage         *string
	BackgroundPermissions *bool
}

// UpsertProfile creates the user's profile or updates the existing one.
// New profiles need both passwords and at least one contact; they default
// to enabled and English. An update may omit contacts but never empty them.
func (s *Service) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (models.ProfileView, error) {
	if in.VoiceLanguage != "" && !validLanguage(in.VoiceLanguage) {
		return models.ProfileView{}, languageError()
	}
	if in.Contacts != nil && len(in.Contacts) == 0 {
		return models.ProfileView{}, contactsRequiredError()
	}
	var contacts []models.EmergencyContact
	if in.Contacts != nil {
		var err error
		if contacts, err = buildContacts(in.Contacts); err != nil {
			return models.ProfileView{}, err
		}
	}

	existing, err := s.profiles.GetProfileByUser(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		p, cerr := s.createProfile(ctx, userID, in, contacts)
		if !errors.Is(cerr, store.ErrAlreadyExists) {
			if cerr != nil {
				return models.ProfileView{}, cerr
			}
			return s.profileView(ctx, p)
		}
		// Lost a create race; apply the request as an update instead.
		if existing, err = s.profiles.GetProfileByUser(ctx, userID); err != nil {
			return models.ProfileView{}, storeError("get profile", err)
		}
	case err != nil:
		return models.ProfileView{}, storeError("get profile", err)
	}

	p, err := s.profiles.UpdateProfile(ctx, existing.ID, func(p *models.Profile) error {
		pair, err := s.hasher.Derive(in.FullPassword, in.PartialPassword, &credential.Pair{
			FullHash:    p.FullPasswordHash,
			PartialHash: p.PartialPasswordHash,
		})
		if err != nil {
			return err
		}
		p.FullPasswordHash = pair.FullHash
		p.PartialPasswordHash = pair.PartialHash
		if contacts != nil {
			p.Contacts = contacts
		}
		if in.VoiceLanguage != "" {
			p.VoiceLanguage = in.VoiceLanguage
		}
		applyFlags(p, in.Enabled, in.BiometricEnabled, in.BackgroundPermissions)
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return models.ProfileView{}, storeError("update profile", err)
	}

	logging.Ctx(ctx).Info().Str("profile_id", p.ID).Int("contacts", len(p.Contacts)).Msg("SOS profile updated")
	return s.profileView(ctx, p)
}

func (s *Service) createProfile(ctx context.Context, userID string, in ProfileInput, contacts []models.EmergencyContact) (*models.Profile, error) {
	if len(contacts) == 0 {
		return nil, contactsRequiredError()
	}
	pair, err := s.hasher.Derive(in.FullPassword, in.PartialPassword, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &models.Profile{
		ID:                  uuid.NewString(),
		UserID:              userID,
		FullPasswordHash:    pair.FullHash,
		PartialPasswordHash: pair.PartialHash,
		Contacts:            contacts,
		Enabled:             true,
		VoiceLanguage:       "en",
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if in.VoiceLanguage != "" {
		p.VoiceLanguage = in.VoiceLanguage
	}
	applyFlags(p, in.Enabled, in.BiometricEnabled, in.BackgroundPermissions)

	if err := s.profiles.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, err
		}
		return nil, models.NewInternalError("create profile", err)
	}
	logging.Ctx(ctx).Info().Str("profile_id", p.ID).Int("contacts", len(p.Contacts)).Msg("SOS profile created")
	return p, nil
}

// GetProfile returns the user's profile with its number of active alerts.
func (s *Service) GetProfile(ctx context.Context, userID string) (models.ProfileView, error) {
	p, err := s.profileFor(ctx, userID)
	if err != nil {
		return models.ProfileView{}, err
	}
	return s.profileView(ctx, p)
}

// AddContact appends a contact to the user's profile.
func (s *Service) AddContact(ctx context.Context, userID string, in ContactInput) (models.EmergencyContact, error) {
	contact, err := buildContact(in)
	if err != nil {
		return models.EmergencyContact{}, err
	}
	p, err := s.profileFor(ctx, userID)
	if err != nil {
		return models.EmergencyContact{}, err
	}

	_, err = s.profiles.UpdateProfile(ctx, p.ID, func(p *models.Profile) error {
		p.Contacts = append(p.Contacts, contact)
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return models.EmergencyContact{}, storeError("add contact", err)
	}

	logging.Ctx(ctx).Info().Str("profile_id", p.ID).Str("contact_id", contact.ID).Msg("Emergency contact added")
	return contact, nil
}

// UpdateSettings changes the given profile flags. Password hashes are
// never touched.
func (s *Service) UpdateSettings(ctx context.Context, userID string, in Settings) (models.ProfileView, error) {
	if in.VoiceLanguage != nil && !validLanguage(*in.VoiceLanguage) {
		return models.ProfileView{}, languageError()
	}
	p, err := s.profileFor(ctx, userID)
	if err != nil {
		return models.ProfileView{}, err
	}

	p, err = s.profiles.UpdateProfile(ctx, p.ID, func(p *models.Profile) error {
		if in.VoiceLanguage != nil {
			p.VoiceLanguage = *in.VoiceLanguage
		}
		applyFlags(p, in.Enabled, in.BiometricEnabled, in.BackgroundPermissions)
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return models.ProfileView{}, storeError("update settings", err)
	}
	return s.profileView(ctx, p)
}

func (s *Service) profileView(ctx context.Context, p *models.Profile) (models.ProfileView, error) {
	active, err := s.alerts.ListActive(ctx, p.UserID)
	if err != nil {
		return models.ProfileView{}, err
	}
	return p.View(len(active)), nil
}

func applyFlags(p *models.Profile, enabled, biometric, background *bool) {
	if enabled != nil {
		p.Enabled = *enabled
	}
	if biometric != nil {
		p.BiometricEnabled = *biometric
	}
	if background != nil {
		p.BackgroundPermissions = *background
	}
}

func buildContacts(in []ContactInput) ([]models.EmergencyContact, error) {
	out := make([]models.EmergencyContact, 0, len(in))
	for i, c := range in {
		contact, err := buildContact(c)
		if err != nil {
			var ve *models.ValidationError
			if errors.As(err, &ve) {
				return nil, models.NewValidationError(fmt.Sprintf("emergency_contacts[%d].%s", i, ve.Field), ve.Message)
			}
			return nil, err
		}
		out = append(out, contact)
	}
	return out, nil
}

func buildContact(in ContactInput) (models.EmergencyContact, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return models.EmergencyContact{}, models.NewValidationError("name", "is required")
	case in.Phone == "" && in.Email == "" && in.LinkedUserID == "":
		return models.EmergencyContact{}, models.NewValidationError("phone", "a phone number, email or linked user is required")
	case in.Priority < 0:
		return models.EmergencyContact{}, models.NewValidationError("priority", "must not be negative")
	}

	c := models.EmergencyContact{
		ID:           uuid.NewString(),
		Name:         name,
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Relationship: in.Relationship,
		Priority:     in.Priority,
		Active:       true,
		LinkedUserID: in.LinkedUserID,
	}
	if c.Priority == 0 {
		c.Priority = defaultContactPriority
	}
	if in.Active != nil {
		c.Active = *in.Active
	}
	return c, nil
}

func validLanguage(lang string) bool {
	return slices.Contains(models.VoiceLanguages, lang)
}

func languageError() error {
	return models.NewValidationError("voice_alert_language", "must be one of "+strings.Join(models.VoiceLanguages, ", "))
}

func contactsRequiredError() error {
	return models.NewValidationError("emergency_contacts", "at least one contact is required")
}
