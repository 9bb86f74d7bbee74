package memory

import (
	"context"
	"time"

	"magasin/internal/core/numerator"
)

// Numerator implements numerator.Generator. Sequences live in the store, so
// a rolled-back transaction gives its number back.
type Numerator struct{ store *Store }

func NewNumerator(store *Store) *Numerator { return &Numerator{store: store} }

var _ numerator.Generator = (*Numerator)(nil)

func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, at time.Time) (string, error) {
	var seq int64
	err := n.store.with(ctx, func(t *tenantData) error {
		key := cfg.Prefix + "/" + cfg.Period(at)
		t.sequences[key]++
		seq = t.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return cfg.Format(at, seq), nil
}
