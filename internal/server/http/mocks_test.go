package http

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/services"
	"github.com/stretchr/testify/mock"
)

type mockOTP struct{ mock.Mock }

func (m *mockOTP) Request(ctx context.Context, email string) (*services.CodeIssued, error) {
	args := m.Called(ctx, email)
	res, _ := args.Get(0).(*services.CodeIssued)
	return res, args.Error(1)
}

func (m *mockOTP) Resend(ctx context.Context, email string) (*services.CodeIssued, error) {
	args := m.Called(ctx, email)
	res, _ := args.Get(0).(*services.CodeIssued)
	return res, args.Error(1)
}

func (m *mockOTP) Verify(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

type mockCreds struct{ mock.Mock }

func (m *mockCreds) Register(ctx context.Context, in services.RegisterInput) (*services.RegistrationResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*services.RegistrationResult)
	return res, args.Error(1)
}

func (m *mockCreds) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*services.LoginResult)
	return res, args.Error(1)
}

func (m *mockCreds) ChangeEmail(ctx context.Context, p *services.Principal, newEmail, password string) error {
	return m.Called(ctx, p, newEmail, password).Error(0)
}

func (m *mockCreds) ForgotPassword(ctx context.Context, email string) (*services.CodeIssued, error) {
	args := m.Called(ctx, email)
	res, _ := args.Get(0).(*services.CodeIssued)
	return res, args.Error(1)
}

func (m *mockCreds) ResetPassword(ctx context.Context, password, confirmation, token string) error {
	return m.Called(ctx, password, confirmation, token).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Refresh(ctx context.Context, refreshToken string) (*services.AccessGrant, error) {
	args := m.Called(ctx, refreshToken)
	res, _ := args.Get(0).(*services.AccessGrant)
	return res, args.Error(1)
}

func (m *mockTokens) Validate(ctx context.Context, header string) (*services.Principal, error) {
	args := m.Called(ctx, header)
	res, _ := args.Get(0).(*services.Principal)
	return res, args.Error(1)
}

func (m *mockTokens) Logout(ctx context.Context, p *services.Principal) error {
	return m.Called(ctx, p).Error(0)
}

type mockClients struct{ mock.Mock }

func (m *mockClients) RegisterClient(ctx context.Context, in services.RegisterClientInput) (*models.OAuth2Client, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*models.OAuth2Client)
	return res, args.Error(1)
}

func (m *mockClients) IssueClientToken(ctx context.Context, clientID, secret string) (*services.AccessGrant, error) {
	args := m.Called(ctx, clientID, secret)
	res, _ := args.Get(0).(*services.AccessGrant)
	return res, args.Error(1)
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]*models.User)
	return res, args.Error(1)
}

func (m *mockUsers) Get(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.User)
	return res, args.Error(1)
}

func (m *mockUsers) Current(ctx context.Context, subject string) (*models.User, error) {
	args := m.Called(ctx, subject)
	res, _ := args.Get(0).(*models.User)
	return res, args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*models.Product)
	return res, args.Error(1)
}

func (m *mockCatalog) Update(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error) {
	args := m.Called(ctx, id, patch)
	res, _ := args.Get(0).(*models.Product)
	return res, args.Error(1)
}

func (m *mockCatalog) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCatalog) Get(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.Product)
	return res, args.Error(1)
}

func (m *mockCatalog) List(ctx context.Context) ([]*models.Product, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]*models.Product)
	return res, args.Error(1)
}

func (m *mockCatalog) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).([]string)
	return res, args.Error(1)
}

func (m *mockCatalog) ByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	args := m.Called(ctx, category)
	res, _ := args.Get(0).([]*models.Product)
	return res, args.Error(1)
}

func (m *mockCatalog) Limit(ctx context.Context, n int) ([]*models.Product, error) {
	args := m.Called(ctx, n)
	res, _ := args.Get(0).([]*models.Product)
	return res, args.Error(1)
}

func (m *mockCatalog) Sorted(ctx context.Context, field, order string) ([]*models.Product, error) {
	args := m.Called(ctx, field, order)
	res, _ := args.Get(0).([]*models.Product)
	return res, args.Error(1)
}
