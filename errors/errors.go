// Package errors provides error handling for tabblesync.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Assertion errors for invariant violations
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrDataIntegrity) {
//	    // handle malformed upstream data
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Mark associates an error with a reference sentinel so errors.Is matches
// the sentinel while the original cause stays visible in the message.
var Mark = crdb.Mark

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions and panics
var (
	AssertionFailedf                 = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
	HasAssertionFailure              = crdb.HasAssertionFailure
)

// Common sentinel errors for use across tabblesync.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrConfiguration indicates the run configuration is unusable
	// (bad namespace directory, mismatched mode, invalid parameters).
	// Configuration errors abort the whole run.
	ErrConfiguration = New("configuration error")

	// ErrDataIntegrity indicates the upstream tag data is malformed,
	// e.g. a reserved-marker key showing up where key/value keys belong.
	// Data-integrity errors abort the whole run.
	ErrDataIntegrity = New("data integrity error")

	// ErrStoreUnavailable indicates the annotation store could not be reached
	ErrStoreUnavailable = New("annotation store unavailable")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsConfigurationError checks if an error is or wraps ErrConfiguration.
// Assertion failures count as configuration errors too: a mode/shape
// mismatch inside the engine means the run was wired up wrong.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, ErrConfiguration) || HasAssertionFailure(err)
}

// IsDataIntegrityError checks if an error is or wraps ErrDataIntegrity
func IsDataIntegrityError(err error) bool {
	return err != nil && Is(err, ErrDataIntegrity)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewConfigurationError creates a configuration error with a formatted message
func NewConfigurationError(format string, args ...interface{}) error {
	return Wrap(ErrConfiguration, Newf(format, args...).Error())
}

// NewDataIntegrityError creates a data-integrity error with a formatted message
func NewDataIntegrityError(format string, args ...interface{}) error {
	return Wrap(ErrDataIntegrity, Newf(format, args...).Error())
}
