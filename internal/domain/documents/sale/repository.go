package sale

import (
	"context"

	"magasin/internal/core/id"
	"magasin/internal/domain"
)

// Repository persists sales and their lines. Every method is scoped to the tenant in ctx.
type Repository interface {
	// Create inserts the sale and all its lines.
	Create(ctx context.Context, s *Sale) error

	// GetByID loads a sale with its lines; NOT_FOUND when absent from the tenant.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate is GetByID holding a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	// Update writes the mutable fields: state, recognized amounts, recognition
	// and cancellation data. Lines are never rewritten.
	Update(ctx context.Context, s *Sale) error

	// List returns sales without their lines.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}
