// Package revokedtokens declares the repository contract for the token
// blacklist consulted on every bearer validation.
package revokedtokens

import (
	"context"
	"time"
)

// Repository defines operations for revoking tokens and checking revocation.
type Repository interface {
	// Add blacklists token until expiresAt. Adding a token twice is not an
	// error; inserted reports whether this call created the row.
	Add(ctx context.Context, token string, expiresAt time.Time) (inserted bool, err error)

	// Exists reports whether token is blacklisted.
	Exists(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes rows whose token expired before now and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
