package dto

import (
	"time"

	"magasin/internal/core/id"
	"magasin/internal/core/types"
	"magasin/internal/domain/registers/stock"
)

// StockInRequest is the body of POST /products/:id/stock/in.
type StockInRequest struct {
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice *types.Money   `json:"unitPrice"`
	Reason    string         `json:"reason"`
	Reference string         `json:"reference"`
}

// StockOutRequest is the body of POST /products/:id/stock/out.
type StockOutRequest struct {
	Quantity  types.Quantity `json:"quantity"`
	Reason    string         `json:"reason"`
	Reference string         `json:"reference"`
}

// SupplierReturnRequest is the body of POST /products/:id/stock/return.
// It takes back received quantity without touching the average cost.
type SupplierReturnRequest struct {
	Quantity  types.Quantity `json:"quantity"`
	Reason    string         `json:"reason"`
	Reference string         `json:"reference"`
}

// AdjustRequest is the body of POST /products/:id/stock/adjust.
type AdjustRequest struct {
	NewQuantity types.Quantity `json:"newQuantity"`
	Reason      string         `json:"reason"`
}

// MovementResponse represents a stock movement in API responses.
type MovementResponse struct {
	ID                id.ID              `json:"id"`
	ProductID         id.ID              `json:"productId"`
	Type              stock.MovementType `json:"type"`
	Quantity          types.Quantity     `json:"quantity"`
	UnitPrice         *string            `json:"unitPrice,omitempty"`
	ReferenceDocument string             `json:"referenceDocument,omitempty"`
	Reason            string             `json:"reason,omitempty"`
	IsReversal        bool               `json:"isReversal"`
	CreatedBy         string             `json:"createdBy"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// FromMovement converts a movement.
func FromMovement(m *stock.Movement) MovementResponse {
	var price *string
	if m.UnitPrice != nil {
		s := m.UnitPrice.StringFixed(types.CostPlaces)
		price = &s
	}
	return MovementResponse{
		ID:                m.ID,
		ProductID:         m.ProductID,
		Type:              m.Type,
		Quantity:          m.Quantity,
		UnitPrice:         price,
		ReferenceDocument: m.ReferenceDocument,
		Reason:            m.Reason,
		IsReversal:        m.IsReversal,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
	}
}
