package cache

import (
	"fmt"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/config"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/pubsub"
)

// New builds the configured cache. Driver "none" returns nil and the
// service runs uncached. A broadcasting memory cache needs Redis.
func New(cfg *config.Config) (SearchCache, error) {
	switch cfg.Cache.Driver {
	case "redis":
		c, err := NewRedisSearchCache(cfg.Redis, cfg.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "memory":
		c, err := NewMemorySearchCache(cfg.Cache.Size)
		if err != nil {
			return nil, err
		}
		if !cfg.Cache.Broadcast {
			return c, nil
		}

		bus, err := pubsub.NewRedisPubSub(pubsub.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		bc, err := NewBroadcastCache(c, bus, cfg.Cache.Channel)
		if err != nil {
			bus.Close()
			return nil, err
		}
		return bc, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}
