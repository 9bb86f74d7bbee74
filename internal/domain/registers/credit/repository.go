// Package credit provides the customer credit account: the outstanding
// balance a customer owes the store, bounded by an authorized limit.
package credit

import (
	"context"

	"magasin/internal/core/id"
	"magasin/internal/core/types"
)

// Repository changes customer balances with single atomic statements.
// Every method is scoped to the tenant in ctx. A false applied result
// means the guard rejected the change or the customer does not exist.
type Repository interface {
	// AddWithinLimit adds amount when credit_limit <= 0 or balance+amount <= credit_limit.
	AddWithinLimit(ctx context.Context, customerID id.ID, amount types.Money) (balance types.Money, applied bool, err error)

	// Add adds amount unconditionally.
	Add(ctx context.Context, customerID id.ID, amount types.Money) (balance types.Money, applied bool, err error)

	// SubtractIfCovered subtracts amount when balance >= amount.
	SubtractIfCovered(ctx context.Context, customerID id.ID, amount types.Money) (balance types.Money, applied bool, err error)

	// Subtract subtracts amount unconditionally; the balance may go negative.
	Subtract(ctx context.Context, customerID id.ID, amount types.Money) (balance types.Money, applied bool, err error)
}
