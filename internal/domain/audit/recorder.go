// Package audit defines the activity trail contract. Recording is a side
// concern: it happens after commit and never fails the audited operation.
package audit

import (
	"context"

	"magasin/internal/core/id"
	"magasin/internal/core/tx"
	"magasin/pkg/logger"
)

// Action names an audited operation.
type Action string

const (
	ActionCreate        Action = "create"
	ActionCancel        Action = "cancel"
	ActionCheckStatus   Action = "check_status"
	ActionCreditPayment Action = "credit_payment"
	ActionStockIn       Action = "stock_in"
	ActionStockOut      Action = "stock_out"
	ActionStockAdjust   Action = "stock_adjust"
)

// Event is one audit trail entry.
type Event struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Changes    map[string]any
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// RecordAfterCommit schedules ev for the recorder once the transaction in ctx
// commits. Failures are logged and swallowed. A nil recorder is a no-op.
func RecordAfterCommit(ctx context.Context, r Recorder, ev Event) {
	if r == nil {
		return
	}
	tx.AfterCommit(ctx, func(ctx context.Context) {
		if err := r.Record(ctx, ev); err != nil {
			logger.Warn(ctx, "audit event not recorded",
				"entity_type", ev.EntityType,
				"entity_id", ev.EntityID,
				"action", ev.Action,
				"error", err,
			)
		}
	})
}
