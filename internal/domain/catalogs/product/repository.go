package product

import (
	"context"

	"magasin/internal/core/id"
	"magasin/internal/domain"
)

// Repository persists products. Every method is scoped to the tenant in ctx.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	// GetByID returns NOT_FOUND when the product does not exist in the tenant.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetForUpdate locks the row until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error)
}
