package service

import (
	"context"
	"errors"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/fallback"
)

var (
	ErrInvalidQuery = errors.New("invalid search query")
	// ErrUpstream marks a primary datastore failure. It is the one failure
	// a search call does not recover from.
	ErrUpstream = errors.New("primary datastore unavailable")
)

// SearchService is the single entry point for search.
type SearchService interface {
	Search(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, error)
	Mode() domain.Mode
	Ping(ctx context.Context) error
}

// FallbackEngine answers queries from the primary datastore.
type FallbackEngine interface {
	Query(ctx context.Context, q fallback.Query) (*fallback.Page, error)
}

// Enricher loads full entities for index hits.
type Enricher interface {
	FindManyByIDs(ctx context.Context, cat domain.Category, ids []string) ([]domain.Entity, error)
	Ping(ctx context.Context) error
}
