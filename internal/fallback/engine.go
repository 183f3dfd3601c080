// Package fallback answers search queries straight from the primary
// datastore's native text search. It trades fuzzy matching for
// availability and is used whenever the dedicated backend cannot be.
package fallback

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/repository"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/database"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// Store is the slice of the repository the engine reads through.
type Store interface {
	Find(ctx context.Context, cat domain.Category, scope func(*gorm.DB) *gorm.DB) ([]domain.Entity, error)
	Count(ctx context.Context, cat domain.Category, scope func(*gorm.DB) *gorm.DB) (int, error)
	Dialect() string
}

// Query is one category's share of a search.
type Query struct {
	Category domain.Category
	Text     string
	Filters  map[string]string
	Page     int
	PageSize int
	Sort     string
}

// Page is a page of full entities and the category total.
type Page struct {
	Entities []domain.Entity
	Total    int
}

// Engine runs queries against the primary datastore.
type Engine struct {
	store    Store
	postgres bool
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store:    store,
		postgres: store.Dialect() == database.DriverPostgres,
	}
}

// Query returns the entities matching q. Text matches any token of the
// query; filters are ANDed equality predicates.
func (e *Engine) Query(ctx context.Context, q Query) (*Page, error) {
	if !q.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, q.Category)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 1
	}

	tokens := Tokenize(q.Text)
	if strings.TrimSpace(q.Text) != "" && len(tokens) == 0 {
		// Nothing searchable survives tokenizing, so nothing can match.
		return &Page{Entities: []domain.Entity{}}, nil
	}

	where := func(tx *gorm.DB) *gorm.DB {
		tx = e.applyFilters(tx, q.Category, q.Filters)
		if len(tokens) > 0 {
			tx = e.applyText(tx, q.Category, tokens)
		}
		return tx
	}

	total, err := e.store.Count(ctx, q.Category, where)
	if err != nil {
		return nil, err
	}

	offset := (q.Page - 1) * q.PageSize
	entities, err := e.store.Find(ctx, q.Category, func(tx *gorm.DB) *gorm.DB {
		tx = where(tx)
		return e.applyOrder(tx, q.Category, tokens, q.Sort).Offset(offset).Limit(q.PageSize)
	})
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []domain.Entity{}
	}

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldCategory, string(q.Category)).
		Int("hits", len(entities)).
		Int("total", total).
		Msg("fallback query")

	return &Page{Entities: entities, Total: total}, nil
}

// applyFilters adds one equality predicate per declared filter field, in
// a stable order. Undeclared fields are ignored.
func (e *Engine) applyFilters(tx *gorm.DB, cat domain.Category, filters map[string]string) *gorm.DB {
	fields := make([]string, 0, len(filters))
	for f, v := range filters {
		if v != "" && cat.HasFilterField(f) {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)

	for _, f := range fields {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: f}, Value: filters[f]})
	}
	return tx
}

func (e *Engine) applyText(tx *gorm.DB, cat domain.Category, tokens []string) *gorm.DB {
	if e.postgres {
		return tx.Where(repository.TSVectorExpr(cat)+" @@ "+tsQueryExpr, tsQuery(tokens))
	}

	// Without a text index: any token appearing in any text column.
	var (
		ors  []string
		args []interface{}
	)
	for _, tok := range tokens {
		pattern := "%" + tok + "%"
		for _, col := range cat.TextFields() {
			ors = append(ors, fmt.Sprintf("LOWER(%q) LIKE ?", col))
			args = append(args, pattern)
		}
	}
	return tx.Where("("+strings.Join(ors, " OR ")+")", args...)
}

func (e *Engine) applyOrder(tx *gorm.DB, cat domain.Category, tokens []string, sortHint string) *gorm.DB {
	if len(tokens) > 0 {
		if e.postgres {
			tx = tx.Order(clause.OrderBy{Expression: clause.Expr{
				SQL:                "ts_rank(" + repository.TSVectorExpr(cat) + ", " + tsQueryExpr + ") DESC",
				Vars:               []interface{}{tsQuery(tokens)},
				WithoutParentheses: true,
			}})
		}
		return tx.Order("created_at DESC").Order("id ASC")
	}

	switch strings.ToLower(strings.TrimSpace(sortHint)) {
	case "created_at", "oldest":
		return tx.Order("created_at ASC").Order("id ASC")
	default:
		return tx.Order("created_at DESC").Order("id ASC")
	}
}

// Tokenize lowercases text and splits it into letter/digit runs.
// Operators and punctuation never reach the datastore.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

const tsQueryExpr = "to_tsquery('" + repository.TextSearchConfig + "', ?)"

// tsQuery ORs the tokens, matching any of them.
func tsQuery(tokens []string) string {
	return strings.Join(tokens, " | ")
}
