// Package product provides the product catalog: the rows whose stock quantity
// and weighted-average cost the stock ledger maintains.
package product

import (
	"strings"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain"
)

// Product is a sellable item of a tenant.
type Product struct {
	ID       id.ID  `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"-"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`

	// StockQuantity is the materialized running total of stock movements.
	StockQuantity types.Quantity `db:"stock_quantity" json:"stockQuantity"`

	// PurchasePrice is the weighted-average cost; nil until the first receipt.
	PurchasePrice *types.Money `db:"purchase_price" json:"purchasePrice"`

	SalePrice         types.Money    `db:"sale_price" json:"salePrice"`
	TaxRate           types.Money    `db:"tax_rate" json:"taxRate"`
	MinStockThreshold types.Quantity `db:"min_stock_threshold" json:"minStockThreshold"`
	Active            bool           `db:"active" json:"active"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks catalog fields. Stock fields are owned by the stock ledger.
func (p *Product) Validate() error {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Code == "":
		return apperror.NewValidation("product code is required").WithDetail("field", "code")
	case p.Name == "":
		return apperror.NewValidation("product name is required").WithDetail("field", "name")
	case p.SalePrice.IsNegative():
		return apperror.NewValidation("sale price must not be negative").WithDetail("field", "salePrice")
	case p.PurchasePrice != nil && p.PurchasePrice.IsNegative():
		return apperror.NewValidation("purchase price must not be negative").WithDetail("field", "purchasePrice")
	case p.TaxRate.IsNegative():
		return apperror.NewValidation("tax rate must not be negative").WithDetail("field", "taxRate")
	case p.MinStockThreshold.IsNegative():
		return apperror.NewValidation("minimum stock threshold must not be negative").WithDetail("field", "minStockThreshold")
	case !types.HasAtMostPlaces(p.SalePrice, types.PricePlaces):
		return apperror.NewValidation("sale price has too many decimal places").WithDetail("field", "salePrice")
	case p.PurchasePrice != nil && !types.HasAtMostPlaces(*p.PurchasePrice, types.CostPlaces):
		return apperror.NewValidation("purchase price has too many decimal places").WithDetail("field", "purchasePrice")
	case !types.HasAtMostPlaces(p.TaxRate, types.PricePlaces):
		return apperror.NewValidation("tax rate has too many decimal places").WithDetail("field", "taxRate")
	case p.StockQuantity.IsNegative():
		return apperror.NewValidation("opening stock must not be negative").WithDetail("field", "stockQuantity")
	}
	return nil
}

// IsLowStock reports whether a quantity has reached the alert threshold.
func (p *Product) IsLowStock(qty types.Quantity) bool {
	return p.MinStockThreshold > 0 && qty <= p.MinStockThreshold
}

// ListFilter narrows product listings.
type ListFilter struct {
	domain.ListFilter

	Active   *bool
	LowStock bool
}
