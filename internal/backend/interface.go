// Package backend adapts dedicated full-text engines to one contract:
// per-category indexes, id-keyed document writes and multi-field fuzzy
// queries with exact-match filters.
package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

var (
	ErrUnavailable   = errors.New("search backend unavailable")
	ErrIndexNotReady = errors.New("search index not ready")
	// ErrRejected marks a query the engine refused as malformed or out of
	// its limits. The engine itself is healthy.
	ErrRejected = errors.New("search query rejected")
)

// BackendQuery is one category's query against an index.
type BackendQuery struct {
	Category domain.Category
	Text     string
	Filters  map[string]string
	Offset   int
	Limit    int
	Sort     string
}

// Hit is a thin index hit. ID joins back to the primary datastore.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

// HitPage is an ordered page of hits and the category's total.
type HitPage struct {
	Hits  []Hit
	Total int
}

// Backend is a dedicated search engine.
type Backend interface {
	Name() string
	// EnsureIndex creates the category's index with its field mapping
	// when absent. A pre-existing index is left untouched.
	EnsureIndex(ctx context.Context, cat domain.Category) error
	// Upsert indexes or replaces a document by id. The write is visible
	// to queries issued after it returns.
	Upsert(ctx context.Context, doc domain.IndexDocument) error
	UpsertMany(ctx context.Context, docs []domain.IndexDocument) error
	// Remove deletes a document by id. Removing an absent id succeeds.
	Remove(ctx context.Context, cat domain.Category, id string) error
	Query(ctx context.Context, q BackendQuery) (*HitPage, error)
	// IsAvailable is a lightweight liveness probe. It never fails; an
	// unreachable engine reports false.
	IsAvailable(ctx context.Context) bool
	Close() error
}

// IndexName is the per-category index name under prefix.
func IndexName(prefix string, cat domain.Category) string {
	if prefix == "" {
		return string(cat)
	}
	return prefix + "-" + string(cat)
}

// AutoFuzziness is the edit distance allowed for a term: none for one or
// two characters, one for three to five, two beyond.
func AutoFuzziness(term string) int {
	switch n := utf8.RuneCountInString(term); {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}

// sortDescending reads the advisory sort hint for empty-text queries.
// Newest first unless the hint asks for oldest first.
func sortDescending(hint string) bool {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "created_at", "oldest":
		return false
	default:
		return true
	}
}

// rejected reports whether status is a client error that says nothing
// about the engine's health.
func rejected(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}
