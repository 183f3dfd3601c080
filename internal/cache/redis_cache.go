package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

type RedisSearchCache struct {
	client *redis.Client
	prefix string
}

// NewRedisSearchCache creates a new Redis-based search cache.
func NewRedisSearchCache(cfg config.RedisConfig, prefix string) (*RedisSearchCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSearchCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &entry, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisSearchCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisSearchCache) genKey(cat domain.Category) string {
	return c.prefix + ":gen:" + string(cat)
}

// Generations reads the counters in one MGET. Unset counters are zero.
func (c *RedisSearchCache) Generations(ctx context.Context, cats []domain.Category) (map[domain.Category]int64, error) {
	keys := make([]string, len(cats))
	for i, cat := range cats {
		keys[i] = c.genKey(cat)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get generations from redis: %w", err)
	}

	gens := make(map[domain.Category]int64, len(cats))
	for i, cat := range cats {
		var n int64
		if s, ok := vals[i].(string); ok {
			n, _ = strconv.ParseInt(s, 10, 64)
		}
		gens[cat] = n
	}
	return gens, nil
}

func (c *RedisSearchCache) Bump(ctx context.Context, cat domain.Category) error {
	if err := c.client.Incr(ctx, c.genKey(cat)).Err(); err != nil {
		return fmt.Errorf("failed to bump generation in redis: %w", err)
	}
	return nil
}

func (c *RedisSearchCache) Close() error {
	return c.client.Close()
}
