// Package v1 provides HTTP API version 1.
package v1

import (
	"slices"

	"github.com/gin-gonic/gin"

	"magasin/internal/core/idempotency"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
	"magasin/internal/domain/documents/sale"
	"magasin/internal/domain/registers/stock"
	"magasin/internal/infrastructure/http/v1/handlers"
	"magasin/internal/infrastructure/http/v1/middleware"
	"magasin/pkg/logger"
)

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	Sales     *sale.Service
	Products  *product.Service
	Customers *customer.Service
	Stock     *stock.Service

	// Idempotency is optional; without it X-Idempotency-Key is ignored.
	Idempotency idempotency.Store

	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.Pinger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Order matters: ErrorHandler wraps Recovery, so a recovered panic is rendered as a JSON error.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	health := handlers.NewHealthHandler(cfg.HealthChecks)
	router.GET("/health/live", health.Live)
	router.GET("/health/ready", health.Ready)

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))

	idempotent := []gin.HandlerFunc{}
	if cfg.Idempotency != nil {
		idempotent = chain(idempotent, middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerSaleRoutes(api.Group("/sales"), handlers.NewSaleHandler(base, cfg.Sales), idempotent)
	registerCustomerRoutes(api.Group("/customers"),
		handlers.NewCustomerHandler(base, cfg.Customers, cfg.Sales), idempotent)
	registerProductRoutes(api.Group("/products"),
		handlers.NewProductHandler(base, cfg.Products, cfg.Stock), idempotent)

	return router
}

func registerSaleRoutes(rg *gin.RouterGroup, h *handlers.SaleHandler, idempotent []gin.HandlerFunc) {
	rg.POST("", chain(idempotent, h.Create)...)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/cancel", h.Cancel)
	rg.PATCH("/:id/check-status", h.UpdateCheckStatus)
}

func registerCustomerRoutes(rg *gin.RouterGroup, h *handlers.CustomerHandler, idempotent []gin.HandlerFunc) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/payments", chain(idempotent, h.Pay)...)
}

func registerProductRoutes(rg *gin.RouterGroup, h *handlers.ProductHandler, idempotent []gin.HandlerFunc) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)

	stockGroup := rg.Group("/:id/stock")
	stockGroup.POST("/in", chain(idempotent, h.StockIn)...)
	stockGroup.POST("/out", chain(idempotent, h.StockOut)...)
	stockGroup.POST("/return", chain(idempotent, h.SupplierReturn)...)
	stockGroup.POST("/adjust", h.Adjust)
	stockGroup.GET("/movements", h.Movements)
}

// chain appends h to a copy of mw.
func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(slices.Clip(mw), h)
}
