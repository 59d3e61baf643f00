package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

const otpColumns = `id, email, otp_code, purpose, request_time, expires_at, active`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {
	query := `
		INSERT INTO otps (email, otp_code, purpose, request_time, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		otp.Email, otp.Code, string(otp.Purpose), otp.RequestedAt, otp.ExpiresAt).Scan(&otp.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	otp.Active = true
	return otp, nil
}

func (r *PostgresRepository) FindActive(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTP, error) {
	query := `
		SELECT ` + otpColumns + `
		FROM otps
		WHERE email = $1 AND purpose = $2 AND active
		ORDER BY id DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, email, string(purpose))
}

func (r *PostgresRepository) FindActiveByCode(ctx context.Context, email, code string, purpose models.OTPPurpose) (*models.OTP, error) {
	query := `
		SELECT ` + otpColumns + `
		FROM otps
		WHERE otp_code = $1 AND purpose = $2 AND active AND ($3 = '' OR email = $3)
		ORDER BY id DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, code, string(purpose), email)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*models.OTP, error) {
	o := &models.OTP{}
	var purpose string
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&o.ID, &o.Email, &o.Code, &purpose, &o.RequestedAt, &o.ExpiresAt, &o.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	o.Purpose = models.OTPPurpose(purpose)
	return o, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE otps SET active = FALSE
		WHERE id = $1 AND active
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) DeactivateAll(ctx context.Context, email string, purpose models.OTPPurpose) (int64, error) {
	query := `
		UPDATE otps SET active = FALSE
		WHERE email = $1 AND purpose = $2 AND active
	`
	res, err := r.db.ExecContext(ctx, query, email, string(purpose))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
