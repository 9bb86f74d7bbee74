package dto

import (
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain/catalogs/customer"
	"magasin/internal/domain/catalogs/product"
)

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Code              string         `json:"code" binding:"required"`
	Name              string         `json:"name" binding:"required"`
	StockQuantity     types.Quantity `json:"stockQuantity"`
	PurchasePrice     *types.Money   `json:"purchasePrice"`
	SalePrice         types.Money    `json:"salePrice"`
	TaxRate           types.Money    `json:"taxRate"`
	MinStockThreshold types.Quantity `json:"minStockThreshold"`
	Active            *bool          `json:"active"`
}

// ToProduct maps the request to a new product. Active defaults to true.
func (r CreateProductRequest) ToProduct() *product.Product {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &product.Product{
		Code:              r.Code,
		Name:              r.Name,
		StockQuantity:     r.StockQuantity,
		PurchasePrice:     r.PurchasePrice,
		SalePrice:         r.SalePrice,
		TaxRate:           r.TaxRate,
		MinStockThreshold: r.MinStockThreshold,
		Active:            active,
	}
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID                id.ID          `json:"id"`
	Code              string         `json:"code"`
	Name              string         `json:"name"`
	StockQuantity     types.Quantity `json:"stockQuantity"`
	PurchasePrice     *string        `json:"purchasePrice"`
	SalePrice         string         `json:"salePrice"`
	TaxRate           string         `json:"taxRate"`
	MinStockThreshold types.Quantity `json:"minStockThreshold"`
	LowStock          bool           `json:"lowStock"`
	Active            bool           `json:"active"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// FromProduct converts a product.
func FromProduct(p *product.Product) ProductResponse {
	var cost *string
	if p.PurchasePrice != nil {
		s := p.PurchasePrice.StringFixed(types.CostPlaces)
		cost = &s
	}
	return ProductResponse{
		ID:                p.ID,
		Code:              p.Code,
		Name:              p.Name,
		StockQuantity:     p.StockQuantity,
		PurchasePrice:     cost,
		SalePrice:         Amount(p.SalePrice),
		TaxRate:           Amount(p.TaxRate),
		MinStockThreshold: p.MinStockThreshold,
		LowStock:          p.IsLowStock(p.StockQuantity),
		Active:            p.Active,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// CreateCustomerRequest is the body of POST /customers.
type CreateCustomerRequest struct {
	Name        string      `json:"name" binding:"required"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email"`
	Balance     types.Money `json:"balance"`
	CreditLimit types.Money `json:"creditLimit"`
}

// ToCustomer maps the request to a new customer.
func (r CreateCustomerRequest) ToCustomer() *customer.Customer {
	return &customer.Customer{
		Name:        r.Name,
		Phone:       r.Phone,
		Email:       r.Email,
		Balance:     r.Balance,
		CreditLimit: r.CreditLimit,
	}
}

// CustomerResponse represents a customer in API responses.
type CustomerResponse struct {
	ID              id.ID     `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	Balance         string    `json:"balance"`
	CreditLimit     string    `json:"creditLimit"`
	AvailableCredit *string   `json:"availableCredit"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FromCustomer converts a customer. AvailableCredit is null when unlimited.
func FromCustomer(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:              c.ID,
		Name:            c.Name,
		Phone:           c.Phone,
		Email:           c.Email,
		Balance:         Amount(c.Balance),
		CreditLimit:     Amount(c.CreditLimit),
		AvailableCredit: OptionalAmount(c.AvailableCredit()),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
