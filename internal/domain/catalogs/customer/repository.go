package customer

import (
	"context"

	"magasin/internal/core/id"
	"magasin/internal/domain"
)

// Repository persists customers. Balance changes go through credit.Repository.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Customer], error)
}
