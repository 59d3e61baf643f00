package http

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	AuthPrefix    = "/v1/auth/admin/api"
	ProductPrefix = "/v1/products"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(logger))
	r.Use(Tracing())
	r.Use(RequestLogger(logger))

	r.GET("/healthz", h.Health)

	bearer := h.RequireBearer()

	api := r.Group(AuthPrefix)
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/request-otp", h.RequestOTP)
		api.POST("/resend-otp", h.ResendOTP)
		api.POST("/verify-otp", h.VerifyOTP)
		api.POST("/forgot-password", h.ForgotPassword)
		api.POST("/reset-password", h.ResetPassword)
		api.POST("/token/refresh", h.RefreshToken)
		api.GET("/token", h.ClientToken)
		api.POST("/register/oauth2", h.RegisterClient)

		protected := api.Group("", bearer)
		{
			protected.POST("/logout", h.Logout)
			protected.POST("/change-email", h.ChangeEmail)
			protected.GET("/users", h.ListUsers)
			protected.GET("/users/:id", h.GetUser)
			protected.GET("/current-user", h.CurrentUser)
		}
	}

	catalog := r.Group(ProductPrefix)
	{
		catalog.GET("/all/products", h.ListProducts)
		catalog.GET("/product/:id", h.GetProduct)
		catalog.GET("/categories", h.Categories)
		catalog.GET("/category/:category", h.ProductsByCategory)
		catalog.GET("/limit/:n", h.LimitProducts)
		catalog.GET("/sort", h.SortProducts)

		catalog.POST("/add/product", bearer, h.AddProduct)
		catalog.PUT("/update/:id", bearer, h.UpdateProduct)
		catalog.DELETE("/delete/:id", bearer, h.DeleteProduct)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(c.Request.Context()); err != nil {
			h.logger.Warn(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewServer returns an http.Server with the timeouts used in production.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
