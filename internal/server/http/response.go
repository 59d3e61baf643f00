package http

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/gin-gonic/gin"
)

// Envelope wraps every successful response.
type Envelope struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
}

// ErrorBody is returned for every failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Kind    string `json:"kind"`
}

const (
	KindValidation       = "validation"
	KindConflict         = "conflict"
	KindUnauthorized     = "unauthorized"
	KindForbidden        = "forbidden"
	KindNotFound         = "not_found"
	KindInvalidOrExpired = "invalid_or_expired"
	KindInternal         = "internal"
)

// classify maps an engine error onto a status code and kind.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, common.ErrorConflict):
		return http.StatusBadRequest, KindConflict
	case errors.Is(err, common.ErrorInvalidOrExpired):
		return http.StatusBadRequest, KindInvalidOrExpired
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, KindUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, KindForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, KindNotFound
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

func respond(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Message: message, Status: http.StatusOK, Data: data})
}

func respondCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Envelope{Message: message, Status: http.StatusCreated, Data: data})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, kind := classify(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		msg = "internal server error"
	} else {
		h.logger.Debug(c.Request.Context(), "request rejected", "path", c.FullPath(), "kind", kind, "error", err)
	}

	c.AbortWithStatusJSON(status, ErrorBody{Message: msg, Status: status, Kind: kind})
}

// badRequest reports a body or parameter that could not be decoded.
func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{
		Message: err.Error(),
		Status:  http.StatusBadRequest,
		Kind:    KindValidation,
	})
}
