// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/idempotency"
	"magasin/pkg/logger"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds the JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// ParamID parses the :id path parameter.
func (h *BaseHandler) ParamID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return id.Nil(), false
	}
	return parsed, true
}

// Error registers err on the Gin context and aborts the request.
// The JSON body is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// CompleteIdempotency records the response for replay when the request carried a key.
func (h *BaseHandler) CompleteIdempotency(c *gin.Context, statusCode int, response any) {
	key, ok := c.Get("idempotency_key")
	if !ok {
		return
	}
	v, _ := c.Get("idempotency_store")
	store, ok := v.(idempotency.Store)
	if !ok {
		return
	}
	if err := store.CompleteKey(c.Request.Context(), key.(string), statusCode, "application/json", response); err != nil {
		logger.Warn(c.Request.Context(), "idempotency key not completed", "key", key, "error", err)
	}
}

// Created sends 201 with body.
func (h *BaseHandler) Created(c *gin.Context, body any) {
	h.CompleteIdempotency(c, http.StatusCreated, body)
	c.JSON(http.StatusCreated, body)
}

// OK sends 200 with body.
func (h *BaseHandler) OK(c *gin.Context, body any) {
	h.CompleteIdempotency(c, http.StatusOK, body)
	c.JSON(http.StatusOK, body)
}
