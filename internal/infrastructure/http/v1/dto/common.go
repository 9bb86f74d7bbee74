// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"magasin/internal/core/types"
	"magasin/internal/domain"
)

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page with fn.
func NewListResponse[E, T any](res domain.ListResult[E], fn func(E) T) ListResponse[T] {
	items := make([]T, 0, len(res.Items))
	for _, e := range res.Items {
		items = append(items, fn(e))
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Amount renders money with two decimals.
func Amount(m types.Money) string { return m.StringFixed(types.MoneyPlaces) }

// OptionalAmount renders a nullable amount.
func OptionalAmount(m *types.Money) *string {
	if m == nil {
		return nil
	}
	s := Amount(*m)
	return &s
}
