package numerator

import (
	"context"
	"time"
)

// Generator assigns document numbers, monotonic per tenant/prefix/period.
//
// Implementations must take part in the transaction carried by ctx so a
// rolled-back document does not consume its number.
type Generator interface {
	// GetNextNumber returns the next formatted number, e.g. FAC-2026-000001.
	GetNextNumber(ctx context.Context, cfg Config, at time.Time) (string, error)
}
