package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

// BuildKey derives a cache key from a normalized query and the
// generations of the categories it reads.
func BuildKey(prefix string, q domain.SearchQuery, gens map[domain.Category]int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\x00%s\x00%d\x00%d\x00%s", q.Text, q.Category, q.Page, q.PageSize, q.Sort)

	for _, cat := range q.Category.Expand() {
		filters := q.FiltersFor(cat)
		fields := make([]string, 0, len(filters))
		for f := range filters {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		fmt.Fprintf(&b, "\x00%s@%d", cat, gens[cat])
		for _, f := range fields {
			fmt.Fprintf(&b, "\x00%s=%s", f, filters[f])
		}
	}

	return fmt.Sprintf("%s:%s:%016x", prefix, q.Category, xxhash.Sum64String(b.String()))
}
