// Package customer provides the customer catalog. Balance and credit limit
// are the state of the customer's credit account.
package customer

import (
	"strings"
	"time"

	"magasin/internal/core/apperror"
	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain"
)

// Customer is a buyer known to the tenant.
type Customer struct {
	ID       id.ID  `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"-"`
	Name     string `db:"name" json:"name"`
	Phone    string `db:"phone" json:"phone,omitempty"`
	Email    string `db:"email" json:"email,omitempty"`

	// Balance is what the customer owes the store. Negative means store credit.
	Balance types.Money `db:"balance" json:"balance"`

	// CreditLimit bounds Balance when positive; zero means unlimited.
	CreditLimit types.Money `db:"credit_limit" json:"creditLimit"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Validate checks fields supplied at creation.
func (c *Customer) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	switch {
	case c.Name == "":
		return apperror.NewValidation("customer name is required").WithDetail("field", "name")
	case c.CreditLimit.IsNegative():
		return apperror.NewValidation("credit limit must not be negative").WithDetail("field", "creditLimit")
	case c.Balance.IsNegative():
		return apperror.NewValidation("opening balance must not be negative").WithDetail("field", "balance")
	case c.CreditLimit.IsPositive() && c.Balance.GreaterThan(c.CreditLimit):
		return apperror.NewValidation("opening balance exceeds credit limit").WithDetail("field", "balance")
	}
	return nil
}

// AvailableCredit returns the remaining headroom, or nil when unlimited.
func (c *Customer) AvailableCredit() *types.Money {
	if !c.CreditLimit.IsPositive() {
		return nil
	}
	avail := c.CreditLimit.Sub(c.Balance)
	if avail.IsNegative() {
		avail = types.Zero()
	}
	return &avail
}

// ListFilter narrows customer listings.
type ListFilter struct {
	domain.ListFilter

	// WithBalance keeps customers that owe something.
	WithBalance bool
}
