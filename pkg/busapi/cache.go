package busapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultCacheExpiration = 90 * time.Minute

const cacheKeyPrefix = "bustracker:static:"

// StaticCache keeps rarely changing backend data (routes and stations) in Redis.
type StaticCache struct {
	Cache *cache.Cache[string]
}

func NewStaticCache(client *redis.Client, expiration time.Duration) *StaticCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &StaticCache{
		Cache: cache.New[string](redisStore),
	}
}

func (c *StaticCache) load(ctx context.Context, key string, value any) bool {
	cached, err := c.Cache.Get(ctx, cacheKeyPrefix+key)
	if err != nil {
		return false
	}

	if err := json.Unmarshal([]byte(cached), value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cache entry")
		c.Cache.Delete(ctx, cacheKeyPrefix+key)
		return false
	}

	return true
}

func (c *StaticCache) save(ctx context.Context, key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := c.Cache.Set(ctx, cacheKeyPrefix+key, string(encoded)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache static data")
	}
}

func (c *StaticCache) Invalidate(ctx context.Context, key string) error {
	return c.Cache.Delete(ctx, cacheKeyPrefix+key)
}
