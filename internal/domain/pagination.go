package domain

// DefaultPageSize page size used when the caller does not pass a limit.
const DefaultPageSize = 10

// Pagination server-supplied paging metadata.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	Limit       int `json:"limit"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
}

// HasNext reports whether a later page exists.
func (p *Pagination) HasNext() bool {
	return p != nil && p.CurrentPage < p.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (p *Pagination) HasPrev() bool {
	return p != nil && p.CurrentPage > 1
}

// Page one fetch result: the items in server order plus optional paging and totals.
type Page[T any] struct {
	Items      []T
	Pagination *Pagination
	Totals     Totals
}
