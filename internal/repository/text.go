package repository

import (
	"fmt"
	"strings"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

// TextSearchConfig is the PostgreSQL text search configuration used for
// both the GIN indexes and the queries that hit them.
const TextSearchConfig = "english"

// TableName returns the primary table of a category.
func TableName(cat domain.Category) (string, error) {
	m, err := domain.NewModel(cat)
	if err != nil {
		return "", err
	}
	return m.TableName(), nil
}

// TSVectorExpr is the to_tsvector expression over the category's text
// columns. Queries must use the identical expression for the expression
// index to apply.
func TSVectorExpr(cat domain.Category) string {
	cols := cat.TextFields()
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprintf("coalesce(%q, '')", c)
	}
	return fmt.Sprintf("to_tsvector('%s', %s)", TextSearchConfig, strings.Join(parts, " || ' ' || "))
}
