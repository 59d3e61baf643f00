// Package otps persists one-time codes: email verification OTPs and
// password reset tokens share the otps table, told apart by purpose.
package otps

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

type Repository interface {
	// Create inserts an active code. A second active code for the same
	// (email, purpose) violates otps_one_active_idx and yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, otp *models.OTP) (*models.OTP, error)
	// FindActive returns the active code for (email, purpose), if any.
	FindActive(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error)
	// FindActiveByCode looks up an active row by its code. An empty email
	// matches any address.
	FindActiveByCode(ctx context.Context, email, code string, purpose models.OTPPurpose) (*models.OTP, error)
	// Deactivate consumes a code. It reports false when the row was already
	// inactive, so two concurrent redemptions cannot both succeed.
	Deactivate(ctx context.Context, id int64) (bool, error)
	// DeactivateAll retires every active code for (email, purpose) and
	// returns how many rows changed.
	DeactivateAll(ctx context.Context, email string, purpose models.OTPPurpose) (int64, error)
}
