package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/config"
	"github.com/dmitrijs2005/jazzyauth/internal/server/keylock"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/notify"
	"github.com/dmitrijs2005/jazzyauth/internal/server/repositories/repomanager"
	"go.opentelemetry.io/otel/attribute"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// CodeIssued describes a freshly issued OTP or reset token. Code is empty
// unless the server runs with ExposeCodes.
type CodeIssued struct {
	Code      string
	ExpiresAt time.Time
	ExpiresIn int
}

// OTPService issues, resends and verifies email verification codes.
type OTPService struct {
	db          dbx.Database
	repomanager repomanager.RepositoryManager
	locker      keylock.Locker
	notifier    notify.Enqueuer
	logger      logging.Logger
	ttl         time.Duration
	exposeCodes bool
	now         func() time.Time
}

func NewOTPService(db dbx.Database, m repomanager.RepositoryManager, cfg *config.Config,
	locker keylock.Locker, notifier notify.Enqueuer, logger logging.Logger) *OTPService {
	return &OTPService{
		db:          db,
		repomanager: m,
		locker:      locker,
		notifier:    notifier,
		logger:      logger,
		ttl:         cfg.OTPTTL,
		exposeCodes: cfg.ExposeCodes,
		now:         time.Now,
	}
}

func generateOTP() (string, error) {
	n, err := common.RandomIntInRange(otpMin, otpMax)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// issueCode retires any active code for (email, purpose) and stores a new
// one. It must run inside the caller's transaction.
func issueCode(ctx context.Context, m repomanager.RepositoryManager, tx dbx.DBTX,
	email, code string, purpose models.OTPPurpose, now time.Time, ttl time.Duration) (*models.OTP, error) {

	repo := m.OTPs(tx)
	if _, err := repo.DeactivateAll(ctx, email, purpose); err != nil {
		return nil, fmt.Errorf("error retiring previous codes: %w", err)
	}

	otp, err := repo.Create(ctx, &models.OTP{
		Email:       email,
		Code:        code,
		Purpose:     purpose,
		RequestedAt: now,
		ExpiresAt:   now.Add(ttl),
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("active code exists for %s: %w", email, common.ErrorConflict)
		}
		return nil, fmt.Errorf("error storing code: %w", err)
	}
	return otp, nil
}

// Issue generates a 6-digit code for email inside tx. Callers enqueue the
// notification only after tx commits.
func (s *OTPService) Issue(ctx context.Context, tx dbx.DBTX, email string) (*models.OTP, error) {
	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("error generating code: %w", err)
	}
	return issueCode(ctx, s.repomanager, tx, email, code, models.PurposeVerifyEmail, s.now(), s.ttl)
}

func (s *OTPService) issued(otp *models.OTP) *CodeIssued {
	res := &CodeIssued{
		ExpiresAt: otp.ExpiresAt,
		ExpiresIn: int(otp.ExpiresAt.Sub(otp.RequestedAt).Seconds()),
	}
	if s.exposeCodes {
		res.Code = otp.Code
	}
	return res
}

func (s *OTPService) notifyCode(ctx context.Context, user *models.User, otp *models.OTP) {
	msg, err := notify.VerificationMessage(user.Email, user.FullName, otp.Code, s.ttl)
	if err != nil {
		s.logger.Error(ctx, "error rendering verification email", "error", err)
		return
	}
	if !s.notifier.Enqueue(msg) {
		s.logger.Warn(ctx, "verification email not queued", "email", user.Email)
	}
}

// Resend issues a new code unless an active, unexpired one is still
// outstanding.
func (s *OTPService) Resend(ctx context.Context, email string) (res *CodeIssued, err error) {
	ctx, span := startSpan(ctx, "otp.Resend")
	defer func() { endSpan(span, err) }()

	res, err = s.reissue(ctx, normalizeEmail(email), true)
	return res, boundary(ctx, s.logger, "resend otp", err)
}

// Request issues a new code, superseding any outstanding one.
func (s *OTPService) Request(ctx context.Context, email string) (res *CodeIssued, err error) {
	ctx, span := startSpan(ctx, "otp.Request")
	defer func() { endSpan(span, err) }()

	res, err = s.reissue(ctx, normalizeEmail(email), false)
	return res, boundary(ctx, s.logger, "request otp", err)
}

func (s *OTPService) reissue(ctx context.Context, email string, refuseOutstanding bool) (*CodeIssued, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", common.ErrorValidation)
	}

	unlock, err := s.locker.Lock(ctx, emailLockKey(email))
	if err != nil {
		return nil, fmt.Errorf("error acquiring lock: %w", err)
	}
	defer unlock()

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("user %s: %w", email, common.ErrorNotFound)
		}
		return nil, err
	}
	if user.IsActive {
		return nil, fmt.Errorf("user %s already verified: %w", email, common.ErrorConflict)
	}

	if refuseOutstanding {
		existing, err := s.repomanager.OTPs(s.db).FindActive(ctx, email, models.PurposeVerifyEmail)
		switch {
		case err == nil && !existing.Expired(s.now()):
			return nil, fmt.Errorf("active code outstanding for %s: %w", email, common.ErrorConflict)
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return nil, err
		}
	}

	var otp *models.OTP
	if err := s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		otp, err = s.Issue(ctx, tx, email)
		return err
	}); err != nil {
		return nil, err
	}

	s.notifyCode(ctx, user, otp)
	s.logger.Info(ctx, "otp issued", "email", email)
	return s.issued(otp), nil
}

// Verify consumes code and activates the account. An expired code is
// retired as a side effect, so the user has to request a new one.
func (s *OTPService) Verify(ctx context.Context, email, code string) (err error) {
	ctx, span := startSpan(ctx, "otp.Verify")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if email == "" || code == "" {
		return fmt.Errorf("email and code are required: %w", common.ErrorValidation)
	}

	unlock, err := s.locker.Lock(ctx, emailLockKey(email))
	if err != nil {
		return boundary(ctx, s.logger, "verify otp", err)
	}
	defer unlock()

	expired := false
	err = s.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		otp, err := s.repomanager.OTPs(tx).FindActiveByCode(ctx, email, code, models.PurposeVerifyEmail)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("no active code: %w", common.ErrorInvalidOrExpired)
			}
			return err
		}

		consumed, err := s.repomanager.OTPs(tx).Deactivate(ctx, otp.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return fmt.Errorf("code already used: %w", common.ErrorInvalidOrExpired)
		}
		if otp.Expired(s.now()) {
			// commit the deactivation, report the failure after the tx
			expired = true
			return nil
		}

		user, err := s.repomanager.Users(tx).GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("user %s: %w", email, common.ErrorNotFound)
			}
			return err
		}
		if err := s.repomanager.Users(tx).SetActive(ctx, user.ID); err != nil {
			return err
		}
		return s.repomanager.UserLogs(tx).Append(ctx, user.ID, models.EventVerifyEmail)
	})
	if err != nil {
		return boundary(ctx, s.logger, "verify otp", err)
	}
	if expired {
		return fmt.Errorf("code expired: %w", common.ErrorInvalidOrExpired)
	}

	span.SetAttributes(attribute.Bool("otp.verified", true))
	s.logger.Info(ctx, "email verified", "email", email)
	return nil
}
