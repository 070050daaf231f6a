package shared

// Page size bounds applied to list queries
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Filter holds the paging, ordering and free-text part of a list query.
// Column names in OrderBy are checked against a whitelist by the repository.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// DefaultFilter lists the first page, earliest due date first
func DefaultFilter() Filter {
	return Filter{Page: 1, PageSize: DefaultPageSize, OrderBy: "due_date", OrderDir: "asc"}
}

// WithPage returns f paged by the caller's values. Out-of-range values keep
// the current ones.
func (f Filter) WithPage(page, pageSize int) Filter {
	if page > 0 {
		f.Page = page
	}
	if pageSize > 0 && pageSize <= MaxPageSize {
		f.PageSize = pageSize
	}
	return f
}

// Offset returns the row offset for the current page
func (f Filter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}
