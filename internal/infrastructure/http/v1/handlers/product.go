package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/apperror"
	"magasin/internal/domain"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/http/v1/dto"
)

// ProductHandler exposes the product catalog and the stock ledger.
type ProductHandler struct {
	*BaseHandler
	products *product.Service
	stock    *stock.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(base *BaseHandler, products *product.Service, stockService *stock.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, products: products, stock: stockService}
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p := req.ToProduct()
	if err := h.products.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromProduct(p))
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	p, err := h.products.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// List handles GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	filter := product.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			OrderBy: c.Query("orderBy"),
			Limit:   parseIntQuery(c, "limit", domain.DefaultLimit),
			Offset:  parseIntQuery(c, "offset", 0),
		},
		LowStock: c.Query("lowStock") == "true",
	}
	if v := c.Query("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}
	res, err := h.products.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromProduct))
}

// StockIn handles POST /products/:id/stock/in.
func (h *ProductHandler) StockIn(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.StockInRequest
	if !h.BindJSON(c, &req) {
		return
	}
	mv, err := h.stock.StockIn(c.Request.Context(), stock.StockInRequest{
		ProductID: productID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Reason:    req.Reason,
		Reference: req.Reference,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(mv))
}

// StockOut handles POST /products/:id/stock/out.
func (h *ProductHandler) StockOut(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.StockOutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	mv, err := h.stock.StockOut(c.Request.Context(), stock.StockOutRequest{
		ProductID: productID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Reference: req.Reference,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(mv))
}

// SupplierReturn handles POST /products/:id/stock/return.
func (h *ProductHandler) SupplierReturn(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.SupplierReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		h.Error(c, apperror.NewMissingReason("supplier return"))
		return
	}
	mv, err := h.stock.ReverseIn(c.Request.Context(), productID, req.Quantity, req.Reference, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(mv))
}

// Adjust handles POST /products/:id/stock/adjust.
func (h *ProductHandler) Adjust(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	var req dto.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}
	mv, err := h.stock.Adjust(c.Request.Context(), stock.AdjustRequest{
		ProductID:   productID,
		NewQuantity: req.NewQuantity,
		Reason:      req.Reason,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(mv))
}

// Movements handles GET /products/:id/stock/movements.
func (h *ProductHandler) Movements(c *gin.Context) {
	productID, ok := h.ParamID(c)
	if !ok {
		return
	}
	filter := stock.MovementFilter{
		ListFilter: domain.ListFilter{
			Limit:  parseIntQuery(c, "limit", domain.DefaultLimit),
			Offset: parseIntQuery(c, "offset", 0),
		},
		ProductID: productID,
	}
	if v := c.Query("type"); v != "" {
		typ := stock.MovementType(v)
		filter.Type = &typ
	}
	res, err := h.stock.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(res, dto.FromMovement))
}

func parseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
