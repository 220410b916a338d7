// Package config normalizes declarative service-set configuration into the
// canonical representation the compiler consumes. This is part of the
// functional core - all functions are pure with no I/O.
package config

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Schema errors: a declaration is missing a mandatory field.
	ErrMissingName  = errors.New("service declaration must have a service_name")
	ErrMissingImage = errors.New("service declaration must have an image")

	// Validation errors: cross-field invariants.
	ErrNoServices        = errors.New("configuration declares no services")
	ErrDuplicateService  = errors.New("duplicate service name")
	ErrMissingRouting    = errors.New("domains and ports are required for exposed services")
	ErrInvalidStrategy   = errors.New("deployment strategy must be rolling, blue-green or canary")
	ErrVolumeDirRelative = errors.New("volume directory must be an absolute path")
	ErrMissingArguments  = errors.New("required arguments missing")
)

// SchemaError reports a declaration missing a mandatory field. It names the
// offending service when the name is known, otherwise its index.
type SchemaError struct {
	Service string
	Index   int
	Err     error
}

func (e *SchemaError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("service %q: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("service at index %d: %v", e.Index, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ValidationError reports a violated cross-field invariant.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError wrapping a sentinel.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
