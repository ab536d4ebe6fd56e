package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimchiprasadyadav-beep/callharvey/internal/actions"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/backend"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/calls"
	"github.com/kimchiprasadyadav-beep/callharvey/internal/leads"
	"github.com/kimchiprasadyadav-beep/callharvey/pkg/logger"
)

// statusFor maps command errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, actions.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, actions.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, leads.ErrNotFound), errors.Is(err, calls.ErrNotTracked):
		return http.StatusNotFound
	case errors.Is(err, calls.ErrCallAlreadyRequested):
		return http.StatusConflict
	case errors.Is(err, actions.ErrConcurrencyLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr), errors.Is(err, actions.ErrCallRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes {"error": ...}. Internal failures are logged and their text hidden.
func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError && code != http.StatusBadGateway && code != http.StatusGatewayTimeout {
		logger.FromGin(c).Error("command failed", "err", err)
		c.AbortWithStatusJSON(code, gin.H{"error": "internal error"})
		return
	}
	logger.FromGin(c).Info("command rejected", "status", code, "err", err)
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}
