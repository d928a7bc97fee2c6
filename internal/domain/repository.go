// Package domain holds the types shared by the business packages.
package domain

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search is matched case-insensitively against names and codes
	Search string

	Limit  int
	Offset int
}

// Normalize clamps pagination to sane bounds.
func (f ListFilter) Normalize() ListFilter {
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
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResult builds a result for a normalized filter.
func NewListResult[T any](items []T, total int64, f ListFilter) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, TotalCount: total, Limit: f.Limit, Offset: f.Offset}
}
