package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	"magasin/internal/core/idempotency"
	"magasin/internal/infrastructure/http/v1/dto"
	"magasin/pkg/logger"
)

// ErrorHandler turns the last error on the context into the JSON error body.
// Causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			appErr = apperror.NewInternal(err).WithDetail("request_id", c.GetString("request_id"))
		} else if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}

		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		body := dto.ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}

		failIdempotency(c, status, body)
		c.JSON(status, body)
	}
}

// failIdempotency stores the error response so a retry with the same key replays it.
func failIdempotency(c *gin.Context, status int, body dto.ErrorResponse) {
	key, ok := c.Get(ctxIdempotencyKey)
	if !ok {
		return
	}
	v, _ := c.Get(ctxIdempotencyStore)
	store, ok := v.(idempotency.Store)
	if !ok {
		return
	}
	if err := store.FailKey(c.Request.Context(), key.(string), status, "application/json", body); err != nil {
		logger.Warn(c.Request.Context(), "idempotency key not failed", "key", key, "error", err)
	}
}
