// Package models defines server-side records persisted in PostgreSQL.
package models

import "time"

// User is an account. It starts inactive and becomes active once its email
// has been verified with an OTP.
type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	IsVerified   bool
	// RefreshToken is the last refresh token issued at login, empty when none.
	RefreshToken string
	CreatedAt    time.Time
}

// UserLog is an append-only audit record.
type UserLog struct {
	ID        int64
	UserID    int64
	Event     string
	Timestamp time.Time
}

// Audit events recorded in user_logs.
const (
	EventRegister      = "register"
	EventLogin         = "login"
	EventLogout        = "logout"
	EventVerifyEmail   = "verify_email"
	EventChangeEmail   = "change_email"
	EventResetPassword = "reset_password"
)
