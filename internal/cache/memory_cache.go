package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

type memoryItem struct {
	entry     *Entry
	expiresAt time.Time
}

// MemorySearchCache is an in-process LRU for single-instance deployments.
type MemorySearchCache struct {
	entries *lru.Cache[string, memoryItem]

	mu   sync.Mutex
	gens map[domain.Category]int64
}

func NewMemorySearchCache(size int) (*MemorySearchCache, error) {
	if size < 1 {
		size = 1024
	}
	entries, err := lru.New[string, memoryItem](size)
	if err != nil {
		return nil, err
	}
	return &MemorySearchCache{
		entries: entries,
		gens:    make(map[domain.Category]int64),
	}, nil
}

func (c *MemorySearchCache) Get(ctx context.Context, key string) (*Entry, error) {
	item, ok := c.entries.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		c.entries.Remove(key)
		return nil, ErrCacheMiss
	}
	return item.entry, nil
}

func (c *MemorySearchCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	item := memoryItem{entry: entry}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	c.entries.Add(key, item)
	return nil
}

func (c *MemorySearchCache) Delete(ctx context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

func (c *MemorySearchCache) Generations(ctx context.Context, cats []domain.Category) (map[domain.Category]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gens := make(map[domain.Category]int64, len(cats))
	for _, cat := range cats {
		gens[cat] = c.gens[cat]
	}
	return gens, nil
}

func (c *MemorySearchCache) Bump(ctx context.Context, cat domain.Category) error {
	c.mu.Lock()
	c.gens[cat]++
	c.mu.Unlock()
	return nil
}

func (c *MemorySearchCache) Close() error {
	c.entries.Purge()
	return nil
}
