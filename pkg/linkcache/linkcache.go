// Package linkcache remembers reference URLs that answered successfully, so
// consecutive runs do not hit the same documentation pages again
package linkcache

import (
	"context"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultTTL = 24 * time.Hour

const keyPrefix = "feedcheck:reference:"

type backend interface {
	Get(ctx context.Context, key any) (string, error)
	Set(ctx context.Context, key any, object string, options ...store.Option) error
}

type Cache struct {
	backend backend
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))

	return &Cache{backend: cache.New[string](redisStore)}
}

// Seen reports whether url was remembered and has not expired. Cache errors count as a miss.
func (c *Cache) Seen(ctx context.Context, url string) bool {
	value, err := c.backend.Get(ctx, keyPrefix+url)
	if err != nil {
		return false
	}

	return value != ""
}

func (c *Cache) Remember(ctx context.Context, url string) {
	err := c.backend.Set(ctx, keyPrefix+url, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to cache reference link")
	}
}
