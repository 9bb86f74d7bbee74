package handlers

import (
	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/infrastructure/http/v1/dto"
)

// SaleHandler exposes the settlement engine.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req sale.CreateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.service.CreateSale(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromSale(s))
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	s, err := h.service.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(s))
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.Filter()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid customer id").WithDetail("customerId", q.CustomerID))
		return
	}
	res, err := h.service.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromSale))
}

// Cancel handles POST /sales/:id/cancel.
func (h *SaleHandler) Cancel(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.CancelSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.service.CancelSale(c.Request.Context(), saleID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(s))
}

// UpdateCheckStatus handles PATCH /sales/:id/check-status.
func (h *SaleHandler) UpdateCheckStatus(c *gin.Context) {
	saleID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.CheckStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	s, err := h.service.UpdateCheckStatus(c.Request.Context(), saleID, req.CheckStatus)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromSale(s))
}
