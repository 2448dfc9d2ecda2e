package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while building or driving the
// appliance.
var (
	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrOutOfRange indicates that a value lies outside the range a
	// component accepts.
	ErrOutOfRange = errors.New("value out of range")

	// ErrUnknownCycle indicates that no wash cycle matches a requested name.
	ErrUnknownCycle = errors.New("unknown wash cycle")

	// ErrUnknownSlot indicates that a dispenser has no slot with the given ID.
	ErrUnknownSlot = errors.New("unknown dispenser slot")

	// ErrInvalidTimeFactor indicates that a time factor is not a positive number.
	ErrInvalidTimeFactor = errors.New("time factor must be positive")
)

// RangeError describes a value rejected because it falls outside
// [Min, Max]. It wraps ErrOutOfRange so callers can match with errors.Is.
type RangeError struct {
	// Field names the setting that was being assigned.
	Field string

	// Value is the rejected value.
	Value float64

	// Min and Max bound the accepted range.
	Min, Max float64
}

// Error implements the error interface for RangeError.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: %g not in [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// Unwrap returns ErrOutOfRange.
func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// NewRangeError creates a new RangeError with the given details.
func NewRangeError(field string, value, lo, hi float64) *RangeError {
	return &RangeError{Field: field, Value: value, Min: lo, Max: hi}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
