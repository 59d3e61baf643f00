// Package userlogs stores the append-only audit trail of account events.
package userlogs

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, userID int64, event string) error
	ListByUser(ctx context.Context, userID int64) ([]*models.UserLog, error)
}
