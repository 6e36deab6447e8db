package model

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by stores.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ValidationError represents a validation error in the domain.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) ValidationError {
	return ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error (including wrapped errors).
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// NotFoundError represents a missing resource with field context.
type NotFoundError struct {
	Field   string
	Message string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("not found %s: %s", e.Field, e.Message)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError constructs NotFoundError.
func NewNotFoundError(field, message string) NotFoundError {
	return NotFoundError{Field: field, Message: message}
}

// IsNotFoundError checks if error is NotFoundError or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ConflictError represents a unique constraint or limit violation.
type ConflictError struct {
	Field   string
	Message string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Field, e.Message)
}

func (e ConflictError) Unwrap() error { return ErrConflict }

// NewConflictError constructs ConflictError.
func NewConflictError(field, message string) ConflictError {
	return ConflictError{Field: field, Message: message}
}

// IsConflictError checks if error is ConflictError or wraps ErrConflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}
