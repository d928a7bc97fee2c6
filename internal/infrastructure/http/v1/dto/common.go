// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain"
)

// --- Pagination ---

// ListQuery contains search and pagination parameters.
type ListQuery struct {
	Search string `form:"search"`
	// Q is an alias of Search used by the SKU listing.
	Q      string `form:"q"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a domain list filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	search := q.Search
	if search == "" {
		search = q.Q
	}
	return domain.ListFilter{Search: search, Limit: q.Limit, Offset: q.Offset}
}

// --- ID Response ---

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// IDsResponse lists created ids.
type IDsResponse struct {
	IDs []string `json:"ids"`
}

// NewIDsResponse creates an IDsResponse.
func NewIDsResponse(ids []id.ID) IDsResponse {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return IDsResponse{IDs: out}
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
