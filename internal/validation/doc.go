// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package validation provides request struct validation using
// go-playground/validator v10.
//
// A single validator instance is shared by all handlers. Error field names
// come from the json tag so a client sees the same name it sent:
//
//	type verifyRequest struct {
//	    Password string `json:"password" validate:"required,max=128"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, r, verr)
//	    return
//	}
//
// Custom tags:
//   - phone: optional +, then 7 to 15 digits; spaces, dashes and parentheses ignored
//   - voicelang: one of models.VoiceLanguages
//
// A *RequestValidationError matches models.ErrValidation with errors.Is and
// converts to a VALIDATION_FAILED response body with ToAPIError.
package validation
