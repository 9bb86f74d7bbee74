package stock

import (
	"context"

	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain"
)

// Repository mutates the materialized stock of products and appends movements.
// Every method is scoped to the tenant in ctx.
type Repository interface {
	// Increment adds qty to stock_quantity and, when cost is not nil, sets the
	// purchase price. Returns the new quantity.
	Increment(ctx context.Context, productID id.ID, qty types.Quantity, cost *types.Money) (types.Quantity, error)

	// DecrementIfAvailable subtracts qty in one statement guarded by
	// stock_quantity >= qty. When the guard fails applied is false and the
	// returned quantity is what is currently on hand.
	DecrementIfAvailable(ctx context.Context, productID id.ID, qty types.Quantity) (qtyAfter types.Quantity, applied bool, err error)

	// SetQuantity overwrites stock_quantity.
	SetQuantity(ctx context.Context, productID id.ID, qty types.Quantity) error

	CreateMovement(ctx context.Context, m *Movement) error

	ListMovements(ctx context.Context, filter MovementFilter) (domain.ListResult[*Movement], error)
}
