// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

type Repository interface {
	// Create inserts a user and fills in ID and CreatedAt. A duplicate email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	SetActive(ctx context.Context, id int64) error
	UpdateEmail(ctx context.Context, id int64, email string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetRefreshToken(ctx context.Context, id int64, token string) error
	// ClearRefreshToken drops the stored refresh token only if it equals token.
	ClearRefreshToken(ctx context.Context, id int64, token string) error
}
