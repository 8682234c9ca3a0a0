package auth

import "errors"

var (
	// ErrAuthenticationRequired means no session principal is present.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrAuthorizationDenied means a principal exists but lacks rights.
	// The message is deliberately generic.
	ErrAuthorizationDenied = errors.New("access denied")

	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is the generic duplicate-account failure.
	ErrEmailTaken = errors.New("unable to create account with this email")

	// ErrSessionNotFound means the token resolves to no live session.
	ErrSessionNotFound = errors.New("session not found")
)
