package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/auth"
	"github.com/dmitrijs2005/jazzyauth/internal/server/config"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
)

// AccessGrant is the response to a refresh or client-credentials request.
type AccessGrant struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
}

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	Subject   string
	Type      auth.TokenType
	Token     string
	ExpiresAt time.Time
}

// TokenService issues, validates and revokes bearer tokens and owns the
// blacklist.
type TokenService struct {
	db          dbx.Database
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
	logger      logging.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

func NewTokenService(db dbx.Database, m repomanager.RepositoryManager, cfg *config.Config,
	codec *auth.TokenCodec, logger logging.Logger) *TokenService {
	return &TokenService{
		db:          db,
		repomanager: m,
		codec:       codec,
		logger:      logger,
		accessTTL:   cfg.AccessTokenTTL,
		refreshTTL:  cfg.RefreshTokenTTL,
		now:         time.Now,
	}
}

// AccessTTL is the configured lifetime of access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

func (s *TokenService) IssueAccess(subject string) (string, time.Time, error) {
	return s.codec.Issue(subject, auth.TokenAccess, s.accessTTL)
}

func (s *TokenService) IssueRefresh(subject string) (string, time.Time, error) {
	return s.codec.Issue(subject, auth.TokenRefresh, s.refreshTTL)
}

func (s *TokenService) grant(token string) *AccessGrant {
	return &AccessGrant{
		AccessToken: token,
		TokenType:   common.TokenTypeBearer,
		ExpiresIn:   int(s.accessTTL.Seconds()),
	}
}

// Refresh exchanges the user's current refresh token for a new access
// token. The refresh token itself is not rotated.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (res *AccessGrant, err error) {
	ctx, span := startSpan(ctx, "tokens.Refresh")
	defer func() { endSpan(span, err) }()

	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %v: %w", err, common.ErrorUnauthorized)
	}
	if claims.Type != auth.TokenRefresh {
		return nil, fmt.Errorf("not a refresh token: %w", common.ErrorUnauthorized)
	}

	revoked, err := s.repomanager.RevokedTokens(s.db).Exists(ctx, refreshToken)
	if err != nil {
		return nil, internal(ctx, s.logger, "refresh", err)
	}
	if revoked {
		return nil, fmt.Errorf("%v: %w", common.ErrTokenRevoked, common.ErrorUnauthorized)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("unknown subject: %w", common.ErrorUnauthorized)
		}
		return nil, internal(ctx, s.logger, "refresh", err)
	}
	if user.RefreshToken == "" || subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, fmt.Errorf("refresh token superseded: %w", common.ErrorUnauthorized)
	}

	access, _, err := s.IssueAccess(claims.Subject)
	if err != nil {
		return nil, internal(ctx, s.logger, "refresh", err)
	}
	return s.grant(access), nil
}

// Validate authenticates an Authorization header value. Refresh tokens are
// never accepted as bearer credentials.
func (s *TokenService) Validate(ctx context.Context, header string) (p *Principal, err error) {
	ctx, span := startSpan(ctx, "tokens.Validate")
	defer func() { endSpan(span, err) }()

	token, err := auth.ParseBearer(header)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrorUnauthorized)
	}
	claims, err := s.codec.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrorUnauthorized)
	}
	if claims.Type == auth.TokenRefresh {
		return nil, fmt.Errorf("refresh token used as bearer: %w", common.ErrorUnauthorized)
	}

	revoked, err := s.repomanager.RevokedTokens(s.db).Exists(ctx, token)
	if err != nil {
		return nil, internal(ctx, s.logger, "validate token", err)
	}
	if revoked {
		return nil, fmt.Errorf("%v: %w", common.ErrTokenRevoked, common.ErrorUnauthorized)
	}

	return &Principal{
		Subject:   claims.Subject,
		Type:      claims.Type,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// blacklist adds token until its own expiry. Tokens that no longer parse
// are already unusable and are skipped.
func (s *TokenService) blacklist(ctx context.Context, tx dbx.DBTX, token string) error {
	claims, err := s.codec.Parse(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil
		}
		return fmt.Errorf("%v: %w", err, common.ErrorUnauthorized)
	}
	if _, err := s.repomanager.RevokedTokens(tx).Add(ctx, token, claims.ExpiresAt.Time); err != nil {
		return err
	}
	return nil
}

// Revoke blacklists token and drops it from subject's row if it is the
// stored refresh token. Revoking twice is a no-op.
func (s *TokenService) Revoke(ctx context.Context, token, subject string) (err error) {
	ctx, span := startSpan(ctx, "tokens.Revoke")
	defer func() { endSpan(span, err) }()

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.blacklist(ctx, tx, token); err != nil {
			return err
		}
		user, err := s.repomanager.Users(tx).GetByEmail(ctx, subject)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		return s.repomanager.Users(tx).ClearRefreshToken(ctx, user.ID, token)
	})
	return boundary(ctx, s.logger, "revoke token", err)
}

// Logout revokes the presented access token and the user's stored refresh
// token, then records the event.
func (s *TokenService) Logout(ctx context.Context, p *Principal) (err error) {
	ctx, span := startSpan(ctx, "tokens.Logout")
	defer func() { endSpan(span, err) }()

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.blacklist(ctx, tx, p.Token); err != nil {
			return err
		}

		user, err := s.repomanager.Users(tx).GetByEmail(ctx, p.Subject)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				// client tokens have no user row
				return nil
			}
			return err
		}
		if user.RefreshToken != "" {
			if err := s.blacklist(ctx, tx, user.RefreshToken); err != nil && !errors.Is(err, common.ErrorUnauthorized) {
				return err
			}
			if err := s.repomanager.Users(tx).SetRefreshToken(ctx, user.ID, ""); err != nil {
				return err
			}
		}
		return s.repomanager.UserLogs(tx).Append(ctx, user.ID, models.EventLogout)
	})
	if err != nil {
		return boundary(ctx, s.logger, "logout", err)
	}
	s.logger.Info(ctx, "user logged out", "subject", p.Subject)
	return nil
}

// ReapExpired removes blacklist entries whose tokens have expired anyway.
func (s *TokenService) ReapExpired(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RevokedTokens(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, internal(ctx, s.logger, "reap blacklist", err)
	}
	return n, nil
}

// RunReaper calls ReapExpired every interval until ctx is done.
func (s *TokenService) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ReapExpired(ctx)
			if err != nil {
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "blacklist reaped", "removed", n)
			}
		}
	}
}
