// Package domain provides types shared by the domain packages.
package domain

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search performs a case-insensitive match on the searchable field (number, name, code)
	Search string

	// OrderBy specifies sorting (e.g., "created_at", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   DefaultLimit,
		OrderBy: "-created_at",
	}
}

// Normalized clamps pagination to the allowed window.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
