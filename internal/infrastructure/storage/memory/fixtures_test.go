package memory

import (
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain/catalogs/customer"
)

func newCustomer(balance, limit string) *customer.Customer {
	now := time.Now().UTC()
	return &customer.Customer{
		ID:          id.New(),
		Name:        "Customer",
		Balance:     types.MustMoney(balance),
		CreditLimit: types.MustMoney(limit),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
