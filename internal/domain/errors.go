// Package domain defines the core types and sentinel errors shared across
// repositories, services and handlers. Callers should match errors with
// errors.Is.
package domain

import "errors"

var (
	// ErrValidation covers malformed input, surfaced inline to the caller.
	ErrValidation = errors.New("validation error")

	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. Never reveals which of the two failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateUser is returned when the email is already registered.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrUserNotFound is returned by flows that may reveal existence,
	// such as password recovery.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthorized is returned when an operation requires an
	// authenticated session and none exists.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCode is returned in strict verification mode when a
	// well-formed code does not match the issued one.
	ErrInvalidCode = errors.New("invalid or expired code")
)
