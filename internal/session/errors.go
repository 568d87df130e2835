package session

import "errors"

var (
	// ErrNotInitialized is returned when the identity client has not been constructed yet.
	// Callers treat it as a silent no-op and check the session state first.
	ErrNotInitialized = errors.New("session: not initialized")

	// ErrLoginRequired means no usable token exists and an interactive login must happen.
	ErrLoginRequired = errors.New("session: interactive login required")

	// ErrInvalidState is returned by CompleteLogin for an unknown or expired login state.
	ErrInvalidState = errors.New("session: invalid or expired login state")
)
