package models

import "time"

// BlacklistedToken marks a revoked access or refresh token. ExpiresAt is the
// token's own expiry; past it the row carries no information and is reaped.
type BlacklistedToken struct {
	Token     string
	RevokedAt time.Time
	ExpiresAt time.Time
}
