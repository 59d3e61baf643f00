// Package http exposes the auth engines and the product catalog over a gin
// router.
package http

import (
	"context"

	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/services"
)

type OTPEngine interface {
	Request(ctx context.Context, email string) (*services.CodeIssued, error)
	Resend(ctx context.Context, email string) (*services.CodeIssued, error)
	Verify(ctx context.Context, email, code string) error
}

type CredentialEngine interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegistrationResult, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	ChangeEmail(ctx context.Context, p *services.Principal, newEmail, password string) error
	ForgotPassword(ctx context.Context, email string) (*services.CodeIssued, error)
	ResetPassword(ctx context.Context, password, confirmation, token string) error
}

type TokenEngine interface {
	Refresh(ctx context.Context, refreshToken string) (*services.AccessGrant, error)
	Validate(ctx context.Context, header string) (*services.Principal, error)
	Logout(ctx context.Context, p *services.Principal) error
}

type ClientRegistry interface {
	RegisterClient(ctx context.Context, in services.RegisterClientInput) (*models.OAuth2Client, error)
	IssueClientToken(ctx context.Context, clientID, secret string) (*services.AccessGrant, error)
}

type UserDirectory interface {
	List(ctx context.Context) ([]*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Current(ctx context.Context, subject string) (*models.User, error)
}

type Catalog interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, id int64, patch *models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context) ([]*models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ByCategory(ctx context.Context, category string) ([]*models.Product, error)
	Limit(ctx context.Context, n int) ([]*models.Product, error)
	Sorted(ctx context.Context, field, order string) ([]*models.Product, error)
}

// Handler holds the engines behind the HTTP routes.
type Handler struct {
	otp      OTPEngine
	creds    CredentialEngine
	tokens   TokenEngine
	clients  ClientRegistry
	users    UserDirectory
	products Catalog
	logger   logging.Logger

	// ready backs /healthz; nil means always healthy.
	ready func(context.Context) error
}

type Engines struct {
	OTP         OTPEngine
	Credentials CredentialEngine
	Tokens      TokenEngine
	Clients     ClientRegistry
	Users       UserDirectory
	Products    Catalog
}

func NewHandler(e Engines, logger logging.Logger, ready func(context.Context) error) *Handler {
	return &Handler{
		otp:      e.OTP,
		creds:    e.Credentials,
		tokens:   e.Tokens,
		clients:  e.Clients,
		users:    e.Users,
		products: e.Products,
		logger:   logger,
		ready:    ready,
	}
}
