/*
errors.go - Centralized error types for the roster engine

ERROR CATEGORIES:
  1. Configuration errors - malformed rule values, unparsable period descriptors
  2. Data integrity errors - planning rows pointing at unknown codes, cycle gaps
  3. Store errors - missing rows, locked terms, code collisions

  Expected constraint violations are NOT errors. They are returned as
  checker.Violation values.

USAGE:
  if errors.Is(err, generic.ErrConfiguration) {
      // refuse to validate, report the misconfiguration
  }
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is returned when an HR rule cannot be interpreted.
	ErrConfiguration = errors.New("configuration error")

	// ErrMalformedPeriod is returned for a bad "<day>-HH:MM|<day>-HH:MM" descriptor.
	ErrMalformedPeriod = errors.New("malformed period descriptor")

	// ErrMalformedClock is returned for a bad HH:MM value.
	ErrMalformedClock = errors.New("malformed clock time")

	// ErrUnknownCode is returned when a planning row references a code that
	// is neither an active shift code nor a special code.
	ErrUnknownCode = errors.New("unknown code")

	// ErrCycleGap is returned when the stored cycles leave a hole.
	ErrCycleGap = errors.New("cycle gap")

	// ErrNotFound is returned when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrTermLocked is returned when deleting a special code that owns a term.
	ErrTermLocked = errors.New("special code owns a system term")

	// ErrCodeCollision is returned when a code's letters clash with another code.
	ErrCodeCollision = errors.New("code collision")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError names the HR rule that could not be interpreted.
type ConfigError struct {
	Rule   string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in rule %q (value %q): %s", e.Rule, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// DataIntegrityError describes a planning row the engine had to skip.
type DataIntegrityError struct {
	User string
	Date Date
	Code string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("unknown code %q for user %s on %s", e.Code, e.User, e.Date)
}

func (e *DataIntegrityError) Unwrap() error {
	return ErrUnknownCode
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigError returns true for misconfiguration that blocks validation.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrMalformedClock) ||
		errors.Is(err, ErrMalformedPeriod) ||
		errors.Is(err, ErrTermLocked) ||
		errors.Is(err, ErrCodeCollision)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
