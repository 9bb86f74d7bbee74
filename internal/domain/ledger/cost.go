package ledger

import (
	"github.com/shopspring/decimal"

	"magasin/internal/core/types"
)

// WeightedAverageCost blends an incoming lot into the current average cost.
// With nothing on hand (or no known cost) the incoming cost becomes the average.
func WeightedAverageCost(currentQty types.Quantity, currentCost *types.Money, incomingQty types.Quantity, incomingCost types.Money) types.Money {
	if currentQty <= 0 || currentCost == nil {
		return incomingCost
	}
	totalQty := currentQty.Decimal().Add(incomingQty.Decimal())
	if totalQty.IsZero() {
		return incomingCost
	}
	value := currentQty.Decimal().Mul(*currentCost).Add(incomingQty.Decimal().Mul(incomingCost))
	return value.DivRound(totalQty, 16)
}

// EntryPrice is the cost basis recorded for a receipt: the given price, else
// the current average, else zero.
func EntryPrice(given, current *types.Money) types.Money {
	switch {
	case given != nil:
		return *given
	case current != nil:
		return *current
	default:
		return decimal.Zero
	}
}
