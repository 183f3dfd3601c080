package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrPageOutOfRange is returned for a page that ends beyond the result
// window.
var ErrPageOutOfRange = errors.New("page out of range")

// Mode is the routing decision for a search call.
type Mode string

const (
	ModeBackend  Mode = "backend"
	ModeFallback Mode = "fallback"
)

// SearchQuery is one logical search request.
type SearchQuery struct {
	Text     string
	Category Category
	// Filters holds exact-match field filters per category.
	Filters  map[Category]map[string]string
	Page     int
	PageSize int
	// Sort is an advisory ordering hint for empty-text queries.
	Sort string
}

// PageDefaults bounds the page size of a query.
type PageDefaults struct {
	PageSize    int
	MaxPageSize int
	// MaxWindow is the deepest hit a page may reach. Zero means no limit.
	MaxWindow int
}

// Normalize trims the text and clamps paging into range.
func (q SearchQuery) Normalize(d PageDefaults) SearchQuery {
	q.Text = strings.TrimSpace(q.Text)
	if q.Category == "" {
		q.Category = CategoryAll
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = d.PageSize
	}
	if d.MaxPageSize > 0 && q.PageSize > d.MaxPageSize {
		q.PageSize = d.MaxPageSize
	}
	if q.PageSize < 1 {
		q.PageSize = 1
	}
	return q
}

// HasFilters reports whether any declared filter field carries a value.
func (q SearchQuery) HasFilters() bool {
	for c := range q.Filters {
		if len(q.FiltersFor(c)) > 0 {
			return true
		}
	}
	return false
}

// FiltersFor returns the non-empty filters that apply to c. Fields the
// category does not declare are dropped.
func (q SearchQuery) FiltersFor(c Category) map[string]string {
	out := make(map[string]string)
	for field, v := range q.Filters[c] {
		if v != "" && c.HasFilterField(field) {
			out[field] = v
		}
	}
	return out
}

// Offset is the zero-based index of the first hit on page of size hits.
// The page must end within the first maxWindow hits; a non-positive
// maxWindow only guards against overflow.
func Offset(page, size, maxWindow int) (int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if maxWindow <= 0 {
		maxWindow = math.MaxInt
	}
	if page-1 > (maxWindow-size)/size || size > maxWindow {
		return 0, fmt.Errorf("%w: page %d of size %d exceeds %d hits", ErrPageOutOfRange, page, size, maxWindow)
	}
	return (page - 1) * size, nil
}

// SearchResult is the merged outcome of a search call.
type SearchResult struct {
	PerCategory map[Category][]Entity
	Total       int
	Mode        Mode `json:"-"`
}
