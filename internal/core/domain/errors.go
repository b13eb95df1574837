package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrAssetUnavailable   = errors.New("asset unavailable")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrAlreadyExists      = errors.New("resource already exists")
)

// TransitionError is returned when an operation is not allowed from the
// entity's current state
type TransitionError struct {
	Entity string
	From   string
	Op     string
}

func NewTransitionError(entity, from, op string) *TransitionError {
	return &TransitionError{Entity: entity, From: from, Op: op}
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from status %q", e.Entity, e.Op, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// AssetUnavailableError is returned when an asset cannot be reserved
type AssetUnavailableError struct {
	AssetID uint
	Tag     string
	Status  string
}

func (e *AssetUnavailableError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("asset %d (%s) is not available: %s", e.AssetID, e.Tag, e.Status)
	}
	return fmt.Sprintf("asset %d is not available: %s", e.AssetID, e.Status)
}

func (e *AssetUnavailableError) Is(target error) bool { return target == ErrAssetUnavailable }

// ValidationError describes malformed input for a single field
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError is returned when a referenced entity does not exist
type NotFoundError struct {
	Entity string
	ID     any
}

func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
