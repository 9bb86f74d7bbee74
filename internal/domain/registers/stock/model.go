// Package stock provides the stock ledger: per-product quantity and
// weighted-average cost, changed only through append-only movements.
package stock

import (
	"context"
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// Movement is an immutable stock ledger entry.
type Movement struct {
	ID        id.ID        `db:"id" json:"id"`
	TenantID  string       `db:"tenant_id" json:"-"`
	ProductID id.ID        `db:"product_id" json:"productId"`
	Type      MovementType `db:"movement_type" json:"type"`

	// Quantity is positive for in/out and the signed delta for adjustments.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitPrice is the entry cost basis of an in movement.
	UnitPrice *types.Money `db:"unit_price" json:"unitPrice,omitempty"`

	ReferenceDocument string `db:"reference_document" json:"referenceDocument,omitempty"`
	Reason            string `db:"reason" json:"reason,omitempty"`

	// IsReversal marks movements that undo an earlier one without touching cost.
	IsReversal bool `db:"is_reversal" json:"isReversal"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StockInRequest receives goods.
type StockInRequest struct {
	ProductID id.ID
	Quantity  types.Quantity
	UnitPrice *types.Money
	Reason    string
	Reference string
}

// StockOutRequest removes goods; Reason is mandatory.
type StockOutRequest struct {
	ProductID id.ID
	Quantity  types.Quantity
	Reason    string
	Reference string
}

// AdjustRequest sets the on-hand quantity after a count; Reason is mandatory.
type AdjustRequest struct {
	ProductID   id.ID
	NewQuantity types.Quantity
	Reason      string
}

// MovementFilter narrows movement history.
type MovementFilter struct {
	domain.ListFilter

	ProductID id.ID
	Type      *MovementType
	FromDate  *time.Time
	ToDate    *time.Time
}

// LowStockAlert is emitted after commit when stock reaches the threshold.
type LowStockAlert struct {
	TenantID    string         `json:"tenantId"`
	ProductID   id.ID          `json:"productId"`
	ProductCode string         `json:"productCode"`
	ProductName string         `json:"productName"`
	Quantity    types.Quantity `json:"quantity"`
	Threshold   types.Quantity `json:"threshold"`
	At          time.Time      `json:"at"`
}

// AlertPublisher delivers low-stock alerts. Delivery is best effort.
type AlertPublisher interface {
	PublishLowStock(ctx context.Context, alert LowStockAlert) error
}
