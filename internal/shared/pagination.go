package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

const (
	maxPerPage = 200
	// maxPage keeps Offset within a PostgreSQL INTEGER for any page size.
	maxPage = math.MaxInt32 / maxPerPage
)

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the number of rows to skip for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}
