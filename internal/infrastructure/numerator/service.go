// Package numerator provides the PostgreSQL implementation of document numbering.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	corenumerator "magasin/internal/core/numerator"
	"magasin/internal/core/tenant"
)

var tracer = otel.Tracer("magasin/numerator")

// Querier is the subset of pgx used by the numerator.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for ctx (the active transaction or the pool).
type QuerierFunc func(ctx context.Context) Querier

// Service assigns strictly sequential numbers from sys_sequences.
// The UPSERT runs inside the caller's transaction, so a rollback releases the number.
type Service struct {
	querier QuerierFunc
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator backed by the querier returned from fn.
func New(fn QuerierFunc) *Service {
	return &Service{querier: fn}
}

// GetNextNumber increments the tenant/prefix/period counter and formats it.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, at time.Time) (string, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return "", err
	}
	if cfg.Prefix == "" {
		return "", fmt.Errorf("numerator: empty prefix")
	}

	period := cfg.Period(at)
	ctx, span := tracer.Start(ctx, "numerator.next",
		trace.WithAttributes(
			attribute.String("numerator.prefix", cfg.Prefix),
			attribute.String("numerator.period", period),
		))
	defer span.End()

	var seq int64
	err = s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (tenant_id, prefix, period, current_val)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, prefix, period) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, tenantID, cfg.Prefix, period).Scan(&seq)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("next number %s/%s: %w", cfg.Prefix, period, err)
	}

	return cfg.Format(at, seq), nil
}
