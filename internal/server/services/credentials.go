package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/auth"
	"github.com/dmitrijs2005/jazzyauth/internal/server/config"
	"github.com/dmitrijs2005/jazzyauth/internal/server/keylock"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/notify"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// bcrypt ignores everything past this many bytes.
const maxPasswordBytes = 72

type RegisterInput struct {
	FullName             string
	Email                string
	Password             string
	PasswordConfirmation string
	Role                 string
}

type RegistrationResult struct {
	Email     string
	Role      string
	Code      string
	ExpiresIn int
	Timestamp time.Time
}

type LoginResult struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int
	RefreshToken string
}

// CredentialService handles registration, login, email change and the
// password reset flow.
type CredentialService struct {
	db          dbx.Database
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	tokens      *TokenService
	otp         *OTPService
	locker      keylock.Locker
	notifier    notify.Enqueuer
	logger      logging.Logger
	resetTTL    time.Duration
	exposeCodes bool
	now         func() time.Time

	// dummyHash is compared against on unknown emails so login timing does
	// not reveal whether an account exists.
	dummyHash string
}

func NewCredentialService(db dbx.Database, m repomanager.RepositoryManager, cfg *config.Config,
	hasher *auth.PasswordHasher, tokens *TokenService, otp *OTPService,
	locker keylock.Locker, notifier notify.Enqueuer, logger logging.Logger) (*CredentialService, error) {

	salt, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := hasher.Hash(salt)
	if err != nil {
		return nil, err
	}

	return &CredentialService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		otp:         otp,
		locker:      locker,
		notifier:    notifier,
		logger:      logger,
		resetTTL:    cfg.ResetTokenTTL,
		exposeCodes: cfg.ExposeCodes,
		now:         time.Now,
		dummyHash:   dummy,
	}, nil
}

func validatePassword(password, confirmation string) error {
	if password == "" {
		return fmt.Errorf("password is required: %w", common.ErrorValidation)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password longer than %d bytes: %w", maxPasswordBytes, common.ErrorValidation)
	}
	if password != confirmation {
		return fmt.Errorf("password confirmation does not match: %w", common.ErrorValidation)
	}
	return nil
}

// Register creates an inactive user and issues its first verification
// code. The user, the audit entry and the code commit together.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (res *RegistrationResult, err error) {
	ctx, span := startSpan(ctx, "credentials.Register")
	defer func() { endSpan(span, err) }()

	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	switch {
	case fullName == "":
		return nil, fmt.Errorf("full name is required: %w", common.ErrorValidation)
	case !validEmail(email):
		return nil, fmt.Errorf("invalid email %q: %w", email, common.ErrorValidation)
	}
	if err := validatePassword(in.Password, in.PasswordConfirmation); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, emailLockKey(email))
	if err != nil {
		return nil, internal(ctx, s.logger, "register", err)
	}
	defer unlock()

	if _, err := s.repomanager.Users(s.db).GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", email, common.ErrorConflict)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, internal(ctx, s.logger, "register", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal(ctx, s.logger, "register", err)
	}

	var (
		user *models.User
		otp  *models.OTP
	)
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		user, err = s.repomanager.Users(tx).Create(ctx, &models.User{
			FullName:     fullName,
			Email:        email,
			PasswordHash: hash,
			Role:         in.Role,
		})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return fmt.Errorf("email %s already registered: %w", email, common.ErrorConflict)
			}
			return err
		}
		if err := s.repomanager.UserLogs(tx).Append(ctx, user.ID, models.EventRegister); err != nil {
			return err
		}
		otp, err = s.otp.Issue(ctx, tx, email)
		return err
	})
	if err != nil {
		return nil, boundary(ctx, s.logger, "register", err)
	}

	s.otp.notifyCode(ctx, user, otp)
	s.logger.Info(ctx, "user registered", "user_id", user.ID, "email", email)

	issued := s.otp.issued(otp)
	return &RegistrationResult{
		Email:     user.Email,
		Role:      user.Role,
		Code:      issued.Code,
		ExpiresIn: issued.ExpiresIn,
		Timestamp: otp.RequestedAt,
	}, nil
}

// Login checks the password, then stores a fresh refresh token on the user
// row. Inactive accounts are refused with ErrorForbidden.
func (s *CredentialService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := startSpan(ctx, "credentials.Login")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(s.dummyHash, password)
			return nil, fmt.Errorf("bad credentials: %w", common.ErrorUnauthorized)
		}
		return nil, internal(ctx, s.logger, "login", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return nil, internal(ctx, s.logger, "login", err)
	}
	if !ok {
		return nil, fmt.Errorf("bad credentials: %w", common.ErrorUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account %s not verified: %w", email, common.ErrorForbidden)
	}

	access, _, err := s.tokens.IssueAccess(user.Email)
	if err != nil {
		return nil, internal(ctx, s.logger, "login", err)
	}
	refresh, _, err := s.tokens.IssueRefresh(user.Email)
	if err != nil {
		return nil, internal(ctx, s.logger, "login", err)
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).SetRefreshToken(ctx, user.ID, refresh); err != nil {
			return err
		}
		return s.repomanager.UserLogs(tx).Append(ctx, user.ID, models.EventLogin)
	})
	if err != nil {
		return nil, internal(ctx, s.logger, "login", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{
		AccessToken:  access,
		TokenType:    common.TokenTypeBearer,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		RefreshToken: refresh,
	}, nil
}

// ChangeEmail moves the caller's account to newEmail. Tokens carry the email
// as subject, so the presented access token and the stored refresh token are
// revoked with the update and the client has to log in again.
func (s *CredentialService) ChangeEmail(ctx context.Context, p *Principal, newEmail, password string) (err error) {
	ctx, span := startSpan(ctx, "credentials.ChangeEmail")
	defer func() { endSpan(span, err) }()

	newEmail = normalizeEmail(newEmail)
	if !validEmail(newEmail) {
		return fmt.Errorf("invalid email %q: %w", newEmail, common.ErrorValidation)
	}

	if p == nil || p.Type != auth.TokenAccess {
		return fmt.Errorf("user access token required: %w", common.ErrorUnauthorized)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, p.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("unknown subject: %w", common.ErrorUnauthorized)
		}
		return internal(ctx, s.logger, "change email", err)
	}

	unlock, err := s.locker.Lock(ctx, emailLockKey(newEmail))
	if err != nil {
		return internal(ctx, s.logger, "change email", err)
	}
	defer unlock()

	other, err := s.repomanager.Users(s.db).GetByEmail(ctx, newEmail)
	switch {
	case err == nil && other.ID != user.ID:
		return fmt.Errorf("email %s already taken: %w", newEmail, common.ErrorConflict)
	case err != nil && !errors.Is(err, common.ErrorNotFound):
		return internal(ctx, s.logger, "change email", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		return internal(ctx, s.logger, "change email", err)
	}
	if !ok {
		return fmt.Errorf("bad password: %w", common.ErrorUnauthorized)
	}

	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdateEmail(ctx, user.ID, newEmail); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return fmt.Errorf("email %s already taken: %w", newEmail, common.ErrorConflict)
			}
			return err
		}
		if err := s.tokens.blacklist(ctx, tx, p.Token); err != nil {
			return err
		}
		if user.RefreshToken != "" {
			if err := s.tokens.blacklist(ctx, tx, user.RefreshToken); err != nil && !errors.Is(err, common.ErrorUnauthorized) {
				return err
			}
		}
		if err := s.repomanager.Users(tx).SetRefreshToken(ctx, user.ID, ""); err != nil {
			return err
		}
		return s.repomanager.UserLogs(tx).Append(ctx, user.ID, models.EventChangeEmail)
	})
	if err != nil {
		return boundary(ctx, s.logger, "change email", err)
	}

	s.logger.Info(ctx, "email changed", "user_id", user.ID)
	return nil
}

// ForgotPassword stores an opaque reset token and mails it to the user.
func (s *CredentialService) ForgotPassword(ctx context.Context, email string) (res *CodeIssued, err error) {
	ctx, span := startSpan(ctx, "credentials.ForgotPassword")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", common.ErrorValidation)
	}

	unlock, err := s.locker.Lock(ctx, emailLockKey(email))
	if err != nil {
		return nil, internal(ctx, s.logger, "forgot password", err)
	}
	defer unlock()

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("user %s: %w", email, common.ErrorNotFound)
		}
		return nil, internal(ctx, s.logger, "forgot password", err)
	}

	token := uuid.NewString()
	now := s.now()

	var otp *models.OTP
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		otp, err = issueCode(ctx, s.repomanager, tx, user.Email, token, models.PurposeResetPassword, now, s.resetTTL)
		return err
	})
	if err != nil {
		return nil, boundary(ctx, s.logger, "forgot password", err)
	}

	msg, err := notify.ResetMessage(user.Email, token, s.resetTTL)
	if err != nil {
		s.logger.Error(ctx, "error rendering reset email", "error", err)
	} else if !s.notifier.Enqueue(msg) {
		s.logger.Warn(ctx, "reset email not queued", "email", user.Email)
	}

	res = &CodeIssued{
		ExpiresAt: otp.ExpiresAt,
		ExpiresIn: int(s.resetTTL.Seconds()),
	}
	if s.exposeCodes {
		res.Code = token
	}
	return res, nil
}

// ResetPassword redeems a reset token. The new hash, the consumed token and
// the cleared session commit together.
func (s *CredentialService) ResetPassword(ctx context.Context, password, confirmation, token string) (err error) {
	ctx, span := startSpan(ctx, "credentials.ResetPassword")
	defer func() { endSpan(span, err) }()

	if err := validatePassword(password, confirmation); err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("reset token is required: %w", common.ErrorInvalidOrExpired)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return internal(ctx, s.logger, "reset password", err)
	}

	expired := false
	var userID int64
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		otps := s.repomanager.OTPs(tx)
		otp, err := otps.FindActiveByCode(ctx, "", token, models.PurposeResetPassword)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("no active reset token: %w", common.ErrorInvalidOrExpired)
			}
			return err
		}

		consumed, err := otps.Deactivate(ctx, otp.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return fmt.Errorf("reset token already used: %w", common.ErrorInvalidOrExpired)
		}
		if otp.Expired(s.now()) {
			expired = true
			return nil
		}

		users := s.repomanager.Users(tx)
		user, err := users.GetByEmail(ctx, otp.Email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("reset token owner gone: %w", common.ErrorInvalidOrExpired)
			}
			return err
		}
		userID = user.ID

		if err := users.UpdatePassword(ctx, user.ID, hash); err != nil {
			return err
		}
		if err := users.SetRefreshToken(ctx, user.ID, ""); err != nil {
			return err
		}
		return s.repomanager.UserLogs(tx).Append(ctx, user.ID, models.EventResetPassword)
	})
	if err != nil {
		return boundary(ctx, s.logger, "reset password", err)
	}
	if expired {
		return fmt.Errorf("reset token expired: %w", common.ErrorInvalidOrExpired)
	}

	s.logger.Info(ctx, "password reset", "user_id", userID)
	return nil
}
