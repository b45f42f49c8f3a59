package types

import "github.com/google/uuid"

// NewID returns a new random identifier for durable records.
func NewID() string {
	return uuid.NewString()
}

// Common response types

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// PageParams is a normalized pagination request.
type PageParams struct {
	Limit int
	Page  int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NormalizePage clamps a client-supplied page request.
func NormalizePage(limit, page int) PageParams {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page <= 0 {
		page = 1
	}
	return PageParams{Limit: limit, Page: page}
}

// Offset returns the number of records to skip.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
