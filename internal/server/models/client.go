package models

import "time"

// OAuth2Client is a confidential client allowed to obtain access tokens with
// the client-credentials grant.
type OAuth2Client struct {
	ID               int64
	ClientID         string
	ClientSecretHash string
	RedirectURIs     []string
	// UserID is the registering user, zero when created from the admin CLI.
	UserID    int64
	CreatedAt time.Time
}
