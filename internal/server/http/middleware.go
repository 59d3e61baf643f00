package http

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/server/services"
	"github.com/dmitrijs2005/jazzyauth/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestIDHeader = "X-Request-ID"
	principalKey    = "principal"
)

// RequestLogger assigns a request id and logs each completed request.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		args := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn(c.Request.Context(), "request completed", args...)
			return
		}
		logger.Info(c.Request.Context(), "request completed", args...)
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{
					Message: "internal server error",
					Status:  http.StatusInternalServerError,
					Kind:    KindInternal,
				})
			}
		}()
		c.Next()
	}
}

// Tracing starts a server span per request, continuing an incoming trace
// context when present.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := telemetry.Tracer().Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// RequireBearer validates the Authorization header and stores the
// principal for handlers.
func (h *Handler) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.tokens.Validate(c.Request.Context(), c.GetHeader(common.AuthorizationHeaderName))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

var errNoPrincipal = errors.New("no authenticated principal")

func principalFrom(c *gin.Context) (*services.Principal, error) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, errNoPrincipal
	}
	p, ok := v.(*services.Principal)
	if !ok {
		return nil, errNoPrincipal
	}
	return p, nil
}
