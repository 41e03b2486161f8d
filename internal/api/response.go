// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/validation"
)

// maxBodyBytes bounds request bodies. A planned route of a few thousand
// points fits comfortably.
const maxBodyBytes = 1 << 20

// respondJSON sends a success envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	requestID := logging.RequestIDFromContext(r.Context())
	writeEnvelope(w, r, status, &models.APIResponse{
		Success: true,
		Data:    data,
		Meta:    models.Meta{Timestamp: time.Now().UTC(), RequestID: requestID},
	})
}

// respondError maps err onto the error taxonomy and sends an error
// envelope. Messages of internal and dependency failures are replaced
// with generic text; the cause is logged.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := classifyError(err)

	event := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logging.Ctx(r.Context()).Error()
	}
	event.
		Str("code", apiErr.Code).
		Str("error", sanitizeLogValue(err.Error())).
		Str("method", r.Method).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg("API error")

	writeError(w, r, status, apiErr)
}

func classifyError(err error) (int, *models.APIError) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.ToAPIError()
	}

	var fieldErr *models.ValidationError
	switch {
	case errors.As(err, &fieldErr):
		apiErr := &models.APIError{Code: models.ErrCodeValidation, Message: fieldErr.Error()}
		if fieldErr.Field != "" {
			apiErr.Details = map[string]string{fieldErr.Field: fieldErr.Message}
		}
		return http.StatusBadRequest, apiErr
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, &models.APIError{Code: models.ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, &models.APIError{Code: models.ErrCodeNotFound, Message: notFoundMessage(err)}
	case errors.Is(err, models.ErrAuthentication):
		var authErr *models.AuthenticationError
		msg := "authentication failed"
		if errors.As(err, &authErr) && authErr.Message != "" {
			msg = authErr.Message
		}
		return http.StatusUnauthorized, &models.APIError{Code: models.ErrCodeAuthentication, Message: msg}
	case errors.Is(err, models.ErrDependency):
		return http.StatusBadGateway, &models.APIError{Code: models.ErrCodeExternal, Message: "an external service is unavailable"}
	default:
		return http.StatusInternalServerError, &models.APIError{Code: models.ErrCodeInternal, Message: "internal server error"}
	}
}

func notFoundMessage(err error) string {
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	return "not found"
}

// writeError sends an error envelope as is.
func writeError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError) {
	requestID := logging.RequestIDFromContext(r.Context())
	apiErr.RequestID = requestID
	writeEnvelope(w, r, status, &models.APIResponse{
		Success: false,
		Error:   apiErr,
		Meta:    models.Meta{Timestamp: time.Now().UTC(), RequestID: requestID},
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp *models.APIResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return models.NewValidationError("body", "request body is required")
		case errors.As(err, &maxErr):
			return models.NewValidationError("body", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			return models.NewValidationError("body", "invalid JSON: "+err.Error())
		}
	}
	if dec.More() {
		return models.NewValidationError("body", "request body must contain a single JSON object")
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// sanitizeLogValue escapes control characters so request data cannot
// forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c < 0x20 || c == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", c)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
