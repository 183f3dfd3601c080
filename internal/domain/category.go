package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Category identifies one searchable entity type.
type Category string

const (
	CategoryUsers     Category = "users"
	CategoryGroups    Category = "groups"
	CategoryEvents    Category = "events"
	CategoryKnowledge Category = "knowledge"

	// CategoryAll selects every category. It is a query selector only and
	// never labels a document or an entity.
	CategoryAll Category = "all"
)

var ErrUnknownCategory = errors.New("unknown category")

// Categories lists the concrete categories in response order.
var Categories = []Category{CategoryUsers, CategoryGroups, CategoryEvents, CategoryKnowledge}

type categorySchema struct {
	plural string
	text   []string
	filter []string
}

var schemas = map[Category]categorySchema{
	CategoryUsers: {
		plural: "users",
		text:   []string{"name", "headline", "bio", "company", "skills"},
		filter: []string{"role", "department"},
	},
	CategoryGroups: {
		plural: "groups",
		text:   []string{"title", "description", "tags"},
		filter: []string{"type", "privacy"},
	},
	CategoryEvents: {
		plural: "events",
		text:   []string{"title", "description", "location"},
		filter: []string{"category"},
	},
	CategoryKnowledge: {
		plural: "posts",
		text:   []string{"title", "body", "tags"},
		filter: []string{"category", "company"},
	},
}

// ParseCategory maps a selector string to a Category. An empty selector
// means all categories.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(CategoryAll) {
		return CategoryAll, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the concrete categories.
func (c Category) Valid() bool {
	_, ok := schemas[c]
	return ok
}

// PluralKey is the key under which the category's results are returned.
func (c Category) PluralKey() string {
	return schemas[c].plural
}

// TextFields are the full-text indexed fields of the category.
func (c Category) TextFields() []string {
	return schemas[c].text
}

// FilterFields are the exact-match fields of the category.
func (c Category) FilterFields() []string {
	return schemas[c].filter
}

func (c Category) HasFilterField(field string) bool {
	for _, f := range schemas[c].filter {
		if f == field {
			return true
		}
	}
	return false
}

// Expand returns the concrete categories a selector covers.
func (c Category) Expand() []Category {
	if c == CategoryAll {
		return Categories
	}
	return []Category{c}
}

func (c Category) String() string {
	return string(c)
}
