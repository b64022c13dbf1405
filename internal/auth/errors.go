package auth

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenMissing       = errors.New("token is missing")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrForbidden          = errors.New("forbidden")

	// Causes wrapped together with ErrTokenInvalid.
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature mismatch")
	ErrTokenMalformed = errors.New("token malformed")
)
