// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across core/repo/service layers.
var (
	// ErrNotAuthenticated indicates that a caller is required but absent.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrForbidden indicates that a role or ownership check failed.
	ErrForbidden = errors.New("forbidden")

	// ErrQuotaExceeded indicates that the guest create limit has been hit.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrInvalidTransition indicates a moderation guard or precondition failure.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnknownUnit indicates a unit that is neither a volume nor a mass.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrUnitTypeMismatch indicates a conversion across unit families.
	ErrUnitTypeMismatch = errors.New("unit type mismatch")

	// ErrMissingTranslation indicates no translation for the requested or default language.
	ErrMissingTranslation = errors.New("missing translation")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable indicates that geolocation or translator failed within the deadline.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrValidation indicates broken input shape or a violated record invariant.
	ErrValidation = errors.New("validation failed")

	// ErrVersionConflict indicates optimistic concurrency failure (base version mismatch).
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)
