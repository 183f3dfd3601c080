package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// SearchCache caches whole search results. Each category carries a
// generation counter that index writes bump; keys embed the generations
// they were computed under, so a bump retires every dependent entry.
type SearchCache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Generations(ctx context.Context, cats []domain.Category) (map[domain.Category]int64, error)
	Bump(ctx context.Context, cat domain.Category) error
	Close() error
}
