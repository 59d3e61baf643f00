package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
)

// UserService is the read-only user directory.
type UserService struct {
	db          dbx.DBTX
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewUserService(db dbx.DBTX, m repomanager.RepositoryManager, logger logging.Logger) *UserService {
	return &UserService{db: db, repomanager: m, logger: logger}
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, internal(ctx, s.logger, "list users", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, common.ErrorNotFound)
		}
		return nil, internal(ctx, s.logger, "get user", err)
	}
	return user, nil
}

// Current resolves a token subject to its user. A subject without a row,
// such as a client-credentials token, is unauthorized.
func (s *UserService) Current(ctx context.Context, subject string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("no user for subject: %w", common.ErrorUnauthorized)
		}
		return nil, internal(ctx, s.logger, "current user", err)
	}
	return user, nil
}
