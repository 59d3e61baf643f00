package models

import "time"

// OTPPurpose distinguishes email verification codes from password reset
// tokens, which share the otps table.
type OTPPurpose string

const (
	PurposeVerifyEmail   OTPPurpose = "verify_email"
	PurposeResetPassword OTPPurpose = "reset_password"
)

// OTP is a one-time code bound to an email address. Rows are never deleted;
// Active flips to false once the code is consumed or superseded.
type OTP struct {
	ID          int64
	Email       string
	Code        string
	Purpose     OTPPurpose
	RequestedAt time.Time
	ExpiresAt   time.Time
	Active      bool
}

// Expired reports whether the code is past its expiry at now.
func (o *OTP) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
