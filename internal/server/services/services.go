// Package services contains the server-side business logic: the OTP,
// credential and token engines plus the OAuth2 client, user directory and
// product catalog services. Engines hold no per-request state; everything
// durable goes through repositories vended by repomanager.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/logging"
	"github.com/dmitrijs2005/jazzyauth/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// known are the errors engines report to callers as-is. Anything else is
// treated as a store or transport failure.
var known = []error{
	common.ErrorValidation,
	common.ErrorConflict,
	common.ErrorUnauthorized,
	common.ErrorForbidden,
	common.ErrorNotFound,
	common.ErrorInvalidOrExpired,
	common.ErrorInternal,
}

func isKnown(err error) bool {
	for _, k := range known {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// internal logs err with its detail and returns a bare ErrorInternal so
// store messages never reach the client.
func internal(ctx context.Context, logger logging.Logger, op string, err error) error {
	logger.Error(ctx, op+" failed", "error", err)
	return fmt.Errorf("%s: %w", op, common.ErrorInternal)
}

// boundary passes known errors through and converts the rest with internal.
func boundary(ctx context.Context, logger logging.Logger, op string, err error) error {
	if err == nil || isKnown(err) {
		return err
	}
	return internal(ctx, logger, op, err)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

// emailLockKey is shared by every check-then-write sequence on one address.
func emailLockKey(email string) string {
	return "email:" + email
}
