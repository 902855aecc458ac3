package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. malformed email, short password).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a unique resource already exists.
var ErrConflict = errors.New("conflict")

// ErrInvalidCredentials is returned when an email/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Trip lifecycle errors.
var (
	// ErrLocationUnavailable means the location source could not produce a
	// position fix (permission denied, no signal). State is left unchanged.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrNotAuthenticated means no user was signed in when one was required.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAddressResolution is always recovered locally by degrading the
	// address to a placeholder. It never aborts a trip.
	ErrAddressResolution = errors.New("address resolution failed")

	// ErrResolverUnavailable means the address resolver has not finished
	// initializing, or could not be initialized at all.
	ErrResolverUnavailable = errors.New("address resolver unavailable")

	ErrStorageWrite = errors.New("storage write failed")
	ErrStorageRead  = errors.New("storage read failed")

	// ErrInvalidStateTransition is returned for a start while a trip is in
	// progress and for an end while idle.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)
