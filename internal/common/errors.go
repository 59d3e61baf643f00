// Package common defines shared constants and sentinel errors used across
// the jazzyauth server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Input errors.
	ErrorValidation = errors.New("validation error")
	ErrorConflict   = errors.New("conflict")

	// One-time code and reset token errors.
	ErrorInvalidOrExpired = errors.New("invalid or expired code")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken              = errors.New("invalid token")
	ErrTokenExpired              = errors.New("token expired")
	ErrTokenRevoked              = errors.New("token revoked")
	ErrorInvalidAuthheaderFormat = errors.New("invalid auth header format")
)
