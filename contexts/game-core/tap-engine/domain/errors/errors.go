package errors

import "errors"

var (
	// ErrEnergyExhausted is a defined rejection, not a failure: a tap
	// arrived with zero energy and was ignored.
	ErrEnergyExhausted = errors.New("tap rejected: energy exhausted")

	// ErrUserNotFound marks the create-new-user branch on load.
	ErrUserNotFound = errors.New("user progress not found")

	ErrSessionNotFound        = errors.New("no active session for user")
	ErrInvalidInput           = errors.New("tap engine input is invalid")
	ErrPersistenceUnavailable = errors.New("persistence gateway is unavailable")

	// ErrInvariantViolation is only logged; detected violations are
	// clamped, never fatal.
	ErrInvariantViolation = errors.New("progress invariant violated")
)
