package shared

// Pagination describes one page of a listing. PerPage is clamped to a sane
// default so an unparsed query parameter yields the first page rather than
// an unbounded scan.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination normalizes page/perPage and derives the page count from
// total.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}
