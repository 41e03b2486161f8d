// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across the error taxonomy.
var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication failed")
	ErrDependency     = errors.New("dependency failure")
	ErrInternal       = errors.New("internal error")
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports a missing or inactive record. The message is the
// same for both cases.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a not-found error for a resource.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found or inactive"
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AuthenticationError reports a failed credential check. It never carries
// the attempt count or the reason for the failure.
type AuthenticationError struct {
	Message string
}

// NewAuthenticationError creates an authentication error with a generic message.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// Is matches ErrAuthentication.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// DependencyFailure wraps an error returned by an external collaborator
// (persistence, SMS, email, push, authorities).
type DependencyFailure struct {
	Dependency string
	Err        error
}

// NewDependencyFailure wraps err as a failure of the named dependency.
func NewDependencyFailure(dependency string, err error) *DependencyFailure {
	return &DependencyFailure{Dependency: dependency, Err: err}
}

func (e *DependencyFailure) Error() string {
	if e.Err == nil {
		return e.Dependency + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Dependency, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DependencyFailure) Unwrap() error {
	return e.Err
}

// Is matches ErrDependency.
func (e *DependencyFailure) Is(target error) bool {
	return target == ErrDependency
}

// InternalError reports an unexpected condition. Callers see a generic
// message; the cause is logged.
type InternalError struct {
	Op  string
	Err error
}

// NewInternalError wraps err as an internal failure of op.
func NewInternalError(op string, err error) *InternalError {
	return &InternalError{Op: op, Err: err}
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.Op + ": internal error"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is matches ErrInternal.
func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}
