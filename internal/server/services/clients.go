package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/auth"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
)

// clientSubjectPrefix marks client-credential subjects so they can never
// collide with a user email.
const clientSubjectPrefix = "client:"

type RegisterClientInput struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RedirectURIs []string
}

// ClientService registers OAuth2 confidential clients and runs the
// client-credentials grant.
type ClientService struct {
	db          dbx.Database
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	codec       *auth.TokenCodec
	tokens      *TokenService
	logger      logging.Logger
}

func NewClientService(db dbx.Database, m repomanager.RepositoryManager, hasher *auth.PasswordHasher,
	codec *auth.TokenCodec, tokens *TokenService, logger logging.Logger) *ClientService {
	return &ClientService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		codec:       codec,
		tokens:      tokens,
		logger:      logger,
	}
}

// RegisterClient creates a client owned by the user whose credentials are
// supplied.
func (s *ClientService) RegisterClient(ctx context.Context, in RegisterClientInput) (c *models.OAuth2Client, err error) {
	ctx, span := startSpan(ctx, "clients.RegisterClient")
	defer func() { endSpan(span, err) }()

	if in.Username == "" || in.Password == "" {
		return nil, fmt.Errorf("owner credentials are required: %w", common.ErrorValidation)
	}

	owner, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(in.Username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("bad owner credentials: %w", common.ErrorUnauthorized)
		}
		return nil, internal(ctx, s.logger, "register client", err)
	}
	ok, err := s.hasher.Verify(owner.PasswordHash, in.Password)
	if err != nil {
		return nil, internal(ctx, s.logger, "register client", err)
	}
	if !ok {
		return nil, fmt.Errorf("bad owner credentials: %w", common.ErrorUnauthorized)
	}
	if !owner.IsActive {
		return nil, fmt.Errorf("owner %s not verified: %w", owner.Email, common.ErrorForbidden)
	}

	return s.CreateClient(ctx, in.ClientID, in.ClientSecret, in.RedirectURIs, owner.ID)
}

// CreateClient stores a client without checking an owner. ownerID may be
// zero for clients created by an operator.
func (s *ClientService) CreateClient(ctx context.Context, clientID, secret string, redirectURIs []string, ownerID int64) (*models.OAuth2Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || secret == "" {
		return nil, fmt.Errorf("client_id and client_secret are required: %w", common.ErrorValidation)
	}
	if len(secret) > maxPasswordBytes {
		return nil, fmt.Errorf("client_secret longer than %d bytes: %w", maxPasswordBytes, common.ErrorValidation)
	}
	for _, uri := range redirectURIs {
		if strings.Contains(uri, ",") {
			return nil, fmt.Errorf("redirect uri %q contains a comma: %w", uri, common.ErrorValidation)
		}
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, internal(ctx, s.logger, "create client", err)
	}

	client, err := s.repomanager.Clients(s.db).Create(ctx, &models.OAuth2Client{
		ClientID:         clientID,
		ClientSecretHash: hash,
		RedirectURIs:     redirectURIs,
		UserID:           ownerID,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("client %s exists: %w", clientID, common.ErrorConflict)
		}
		return nil, internal(ctx, s.logger, "create client", err)
	}

	s.logger.Info(ctx, "oauth2 client created", "client_id", clientID, "owner_id", ownerID)
	return client, nil
}

// IssueClientToken is the client-credentials grant.
func (s *ClientService) IssueClientToken(ctx context.Context, clientID, secret string) (g *AccessGrant, err error) {
	ctx, span := startSpan(ctx, "clients.IssueClientToken")
	defer func() { endSpan(span, err) }()

	if clientID == "" || secret == "" {
		return nil, fmt.Errorf("client credentials are required: %w", common.ErrorUnauthorized)
	}

	client, err := s.repomanager.Clients(s.db).GetByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("unknown client: %w", common.ErrorUnauthorized)
		}
		return nil, internal(ctx, s.logger, "client token", err)
	}
	ok, err := s.hasher.Verify(client.ClientSecretHash, secret)
	if err != nil {
		return nil, internal(ctx, s.logger, "client token", err)
	}
	if !ok {
		return nil, fmt.Errorf("bad client secret: %w", common.ErrorUnauthorized)
	}

	token, _, err := s.codec.Issue(clientSubjectPrefix+client.ClientID, auth.TokenClient, s.tokens.AccessTTL())
	if err != nil {
		return nil, internal(ctx, s.logger, "client token", err)
	}
	return s.tokens.grant(token), nil
}
