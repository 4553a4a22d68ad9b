// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"distripos/internal/core/apperror"
	"distripos/internal/core/id"
	"distripos/internal/domain"
)

// --- Pagination ---

// ListQuery holds the common list parameters.
type ListQuery struct {
	Search string `form:"search"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the domain list filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	return domain.ListFilter{Search: q.Search, Limit: q.Limit, Offset: q.Offset}.Normalize()
}

// --- Common responses ---

// IDResponse contains entity ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ValueResponse wraps a single value.
type ValueResponse[T any] struct {
	Value T `json:"value"`
}

// ErrorResponse is the body rendered by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ParseOptionalID parses a nullable id field. Empty means nil.
func ParseOptionalID(field string, raw *string) (*id.ID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	v, err := id.Parse(*raw)
	if err != nil {
		return nil, apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", *raw)
	}
	return &v, nil
}
