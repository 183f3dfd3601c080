package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

func TestBuildKey(t *testing.T) {
	q := domain.SearchQuery{
		Text:     "robotics",
		Category: domain.CategoryAll,
		Page:     1,
		PageSize: 20,
		Filters: map[domain.Category]map[string]string{
			domain.CategoryUsers: {"role": "faculty", "department": "CSE"},
		},
	}
	gens := map[domain.Category]int64{domain.CategoryUsers: 1}

	k1 := BuildKey("search", q, gens)
	assert.True(t, strings.HasPrefix(k1, "search:all:"))
	assert.Equal(t, k1, BuildKey("search", q, gens), "stable across calls")

	q2 := q
	q2.Filters = map[domain.Category]map[string]string{
		domain.CategoryUsers: {"department": "CSE", "role": "faculty", "unknown": "x"},
	}
	assert.Equal(t, k1, BuildKey("search", q2, gens), "filter order and undeclared fields do not matter")

	assert.NotEqual(t, k1, BuildKey("search", q, map[domain.Category]int64{domain.CategoryUsers: 2}))

	q3 := q
	q3.Page = 2
	assert.NotEqual(t, k1, BuildKey("search", q3, gens))
}

func TestEntryKeepsRequestedCategories(t *testing.T) {
	r := &domain.SearchResult{
		PerCategory: map[domain.Category][]domain.Entity{
			domain.CategoryKnowledge: {&domain.KnowledgePost{ID: "k1"}},
		},
		Total: 1,
	}
	e := NewEntry(r)
	assert.Equal(t, []domain.Category{domain.CategoryKnowledge}, e.Categories)
	assert.Equal(t, r, e.Result())
}
