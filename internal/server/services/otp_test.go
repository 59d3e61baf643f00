package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/server/config"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerUnverified(t *testing.T, h *harness, email string) *RegistrationResult {
	t.Helper()
	res, err := h.creds.Register(context.Background(), RegisterInput{
		FullName: "Alice", Email: email, Password: "pw", PasswordConfirmation: "pw", Role: "admin",
	})
	require.NoError(t, err)
	return res
}

func TestOTPService_Issue_CodeShape(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		var otp *models.OTP
		err := h.db.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			var err error
			otp, err = h.otp.Issue(ctx, tx, "a@x.com")
			return err
		})
		require.NoError(t, err)

		require.Len(t, otp.Code, 6)
		n, err := strconv.Atoi(otp.Code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, otpMin)
		assert.LessOrEqual(t, n, otpMax)
		assert.Equal(t, h.clock.Now().Add(time.Minute), otp.ExpiresAt)
	}

	assert.Len(t, h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail), 1,
		"issuing retires the previous code")
}

func TestOTPService_Verify_ActivatesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := registerUnverified(t, h, "a@x.com")

	h.clock.Advance(30 * time.Second)
	require.NoError(t, h.otp.Verify(ctx, "a@x.com", res.Code))

	u := h.store.userByEmail("a@x.com")
	require.NotNil(t, u)
	assert.True(t, u.IsActive)
	assert.Equal(t, []string{models.EventRegister, models.EventVerifyEmail}, h.store.events(u.ID))
	assert.Empty(t, h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail))

	err := h.otp.Verify(ctx, "a@x.com", res.Code)
	assert.ErrorIs(t, err, common.ErrorInvalidOrExpired)
}

func TestOTPService_Verify_Expired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := registerUnverified(t, h, "a@x.com")

	h.clock.Advance(time.Minute + time.Second)
	err := h.otp.Verify(ctx, "a@x.com", res.Code)
	require.ErrorIs(t, err, common.ErrorInvalidOrExpired)

	assert.False(t, h.store.userByEmail("a@x.com").IsActive)
	assert.Empty(t, h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail),
		"a late attempt retires the code")
}

func TestOTPService_Verify_BadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := registerUnverified(t, h, "a@x.com")

	wrong := "100000"
	if res.Code == wrong {
		wrong = "100001"
	}

	tests := []struct {
		name  string
		email string
		code  string
		want  error
	}{
		{"wrong code", "a@x.com", wrong, common.ErrorInvalidOrExpired},
		{"other email", "b@x.com", res.Code, common.ErrorInvalidOrExpired},
		{"empty code", "a@x.com", "", common.ErrorValidation},
		{"empty email", "", res.Code, common.ErrorValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, h.otp.Verify(ctx, tt.email, tt.code), tt.want)
		})
	}

	assert.Len(t, h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail), 1)
}

func TestOTPService_Verify_RollsBackOnStoreFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := registerUnverified(t, h, "a@x.com")

	h.store.fail["users.SetActive"] = errors.New("connection reset")
	err := h.otp.Verify(ctx, "a@x.com", res.Code)
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.NotContains(t, err.Error(), "connection reset")

	assert.False(t, h.store.userByEmail("a@x.com").IsActive)
	assert.Len(t, h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail), 1,
		"code stays usable after a rolled back attempt")

	delete(h.store.fail, "users.SetActive")
	require.NoError(t, h.otp.Verify(ctx, "a@x.com", res.Code))
}

func TestOTPService_Resend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := registerUnverified(t, h, "a@x.com")

	_, err := h.otp.Resend(ctx, "a@x.com")
	require.ErrorIs(t, err, common.ErrorConflict)

	h.clock.Advance(61 * time.Second)
	res, err := h.otp.Resend(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 60, res.ExpiresIn)
	assert.Len(t, res.Code, 6)

	active := h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail)
	require.Len(t, active, 1)
	assert.Equal(t, res.Code, active[0].Code)

	msgs := h.notifier.sent()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Body, res.Code)

	if first.Code != res.Code {
		assert.ErrorIs(t, h.otp.Verify(ctx, "a@x.com", first.Code), common.ErrorInvalidOrExpired)
	}
	require.NoError(t, h.otp.Verify(ctx, "a@x.com", res.Code))
}

func TestOTPService_Resend_Refusals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.otp.Resend(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = h.otp.Resend(ctx, " ")
	assert.ErrorIs(t, err, common.ErrorValidation)

	h.registerAndVerify(t, "Bob", "b@x.com", "pw")
	_, err = h.otp.Resend(ctx, "b@x.com")
	assert.ErrorIs(t, err, common.ErrorConflict)
	_, err = h.otp.Request(ctx, "b@x.com")
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestOTPService_Request_Supersedes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	registerUnverified(t, h, "a@x.com")

	res, err := h.otp.Request(ctx, "a@x.com")
	require.NoError(t, err)

	active := h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail)
	require.Len(t, active, 1)
	assert.Equal(t, res.Code, active[0].Code)
}

func TestOTPService_CodesHiddenUnlessExposed(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.ExposeCodes = false })
	ctx := context.Background()

	reg := registerUnverified(t, h, "a@x.com")
	assert.Empty(t, reg.Code)
	assert.Equal(t, 60, reg.ExpiresIn)

	res, err := h.otp.Request(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, res.Code)

	// the code still goes out by mail
	msgs := h.notifier.sent()
	require.Len(t, msgs, 2)
	active := h.store.activeOTPs("a@x.com", models.PurposeVerifyEmail)
	require.Len(t, active, 1)
	assert.Contains(t, msgs[1].Body, active[0].Code)
}

func TestOTPService_NotifierFullDoesNotFail(t *testing.T) {
	h := newHarness(t)
	h.notifier.refuse = true

	res := registerUnverified(t, h, "a@x.com")
	assert.NotEmpty(t, res.Code)
	assert.Empty(t, h.notifier.sent())
}
