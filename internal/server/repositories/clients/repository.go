// Package clients persists OAuth2 confidential clients.
package clients

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

type Repository interface {
	// Create inserts a client. A duplicate client_id yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, client *models.OAuth2Client) (*models.OAuth2Client, error)
	GetByClientID(ctx context.Context, clientID string) (*models.OAuth2Client, error)
}
