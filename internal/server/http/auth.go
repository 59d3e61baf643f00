package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
	"github.com/dmitrijs2005/jazzyauth/internal/server/services"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	FullName             string `json:"full_name" binding:"required"`
	Email                string `json:"email" binding:"required"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
	Role                 string `json:"role"`
}

type registerData struct {
	Message   string    `json:"message"`
	ExpiresIn int       `json:"expires_in"`
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	OTPCode   string    `json:"otp_code,omitempty"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.creds.Register(c.Request.Context(), services.RegisterInput{
		FullName:             req.FullName,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Role:                 req.Role,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, "User registered successfully", registerData{
		Message:   "An OTP has been sent to your email for verification",
		ExpiresIn: res.ExpiresIn,
		Timestamp: res.Timestamp,
		Role:      res.Role,
		OTPCode:   res.Code,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type jwtData struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type loginData struct {
	JWT          jwtData `json:"jwt"`
	RefreshToken string  `json:"refresh_token"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.creds.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	respond(c, "Login successful", loginData{
		JWT: jwtData{
			AccessToken: res.AccessToken,
			TokenType:   res.TokenType,
			ExpiresIn:   res.ExpiresIn,
		},
		RefreshToken: res.RefreshToken,
	})
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type otpData struct {
	ExpiresIn int    `json:"expires_in"`
	OTPCode   string `json:"otp_code,omitempty"`
}

func (h *Handler) RequestOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.otp.Request(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "OTP sent to your email", otpData{ExpiresIn: res.ExpiresIn, OTPCode: res.Code})
}

func (h *Handler) ResendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.otp.Resend(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "OTP resent to your email", otpData{ExpiresIn: res.ExpiresIn, OTPCode: res.Code})
}

type verifyOTPRequest struct {
	Email   string `json:"email" binding:"required"`
	OTPCode string `json:"otp_code" binding:"required"`
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.otp.Verify(c.Request.Context(), req.Email, req.OTPCode); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Email verified successfully", nil)
}

func (h *Handler) Logout(c *gin.Context) {
	p, err := principalFrom(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.tokens.Logout(c.Request.Context(), p); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Logged out successfully", nil)
}

type changeEmailRequest struct {
	NewEmail string `json:"new_email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) ChangeEmail(c *gin.Context) {
	var req changeEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := principalFrom(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.creds.ChangeEmail(c.Request.Context(), p, req.NewEmail, req.Password); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Email changed successfully, please log in again", nil)
}

type resetData struct {
	ExpiresIn  int    `json:"expires_in"`
	ResetToken string `json:"reset_token,omitempty"`
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.creds.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Password reset instructions sent to your email", resetData{ExpiresIn: res.ExpiresIn, ResetToken: res.Code})
}

type resetPasswordRequest struct {
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
	Token                string `json:"token" binding:"required"`
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.creds.ResetPassword(c.Request.Context(), req.Password, req.PasswordConfirmation, req.Token); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Password reset successfully", nil)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	grant, err := h.tokens.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Token refreshed", jwtData{
		AccessToken: grant.AccessToken,
		TokenType:   grant.TokenType,
		ExpiresIn:   grant.ExpiresIn,
	})
}

// ClientToken is the client-credentials grant. Credentials come from the
// query string.
func (h *Handler) ClientToken(c *gin.Context) {
	grant, err := h.clients.IssueClientToken(c.Request.Context(), c.Query("client_id"), c.Query("client_secret"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Token issued", jwtData{
		AccessToken: grant.AccessToken,
		TokenType:   grant.TokenType,
		ExpiresIn:   grant.ExpiresIn,
	})
}

type registerClientRequest struct {
	ClientID     string   `json:"client_id" binding:"required"`
	ClientSecret string   `json:"client_secret" binding:"required"`
	Username     string   `json:"username" binding:"required"`
	Password     string   `json:"password" binding:"required"`
	RedirectURIs []string `json:"redirect_uris"`
}

type clientData struct {
	ClientID     string   `json:"client_id"`
	RedirectURIs []string `json:"redirect_uris"`
}

func (h *Handler) RegisterClient(c *gin.Context) {
	var req registerClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	client, err := h.clients.RegisterClient(c.Request.Context(), services.RegisterClientInput{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Username:     req.Username,
		Password:     req.Password,
		RedirectURIs: req.RedirectURIs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, "OAuth2 client registered", clientData{ClientID: client.ClientID, RedirectURIs: client.RedirectURIs})
}

// userView is the public shape of a user; hashes and tokens never leave
// the server.
type userView struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

func viewUser(u *models.User) userView {
	return userView{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	out := make([]userView, 0, len(list))
	for _, u := range list {
		out = append(out, viewUser(u))
	}
	respond(c, "Users retrieved", out)
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: %w", c.Param("id"), common.ErrorValidation)
	}
	return id, nil
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	u, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "User retrieved", viewUser(u))
}

func (h *Handler) CurrentUser(c *gin.Context) {
	p, err := principalFrom(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	u, err := h.users.Current(c.Request.Context(), p.Subject)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, "Current user retrieved", viewUser(u))
}
