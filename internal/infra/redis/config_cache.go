package redis

import (
	"context"
	"math/rand"
	"time"

	"contest-service/internal/app"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ConfigCache caches the raw question-config document in Redis in front of a
// slower origin (file or Postgres). Concurrent misses collapse into a single
// origin fetch; cache failures fall through to the origin.
type ConfigCache struct {
	client *redis.Client
	origin app.ConfigLoader
	key    string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewConfigCache(client *redis.Client, origin app.ConfigLoader, key string, ttl time.Duration) *ConfigCache {
	return &ConfigCache{
		client: client,
		origin: origin,
		key:    key,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ConfigCache) LoadConfig(ctx context.Context) ([]byte, error) {
	if raw, err := c.client.Get(ctx, c.key).Bytes(); err == nil && len(raw) > 0 {
		return raw, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := c.client.Get(ctx, c.key).Bytes(); err == nil && len(raw) > 0 {
			return raw, nil
		}

		raw, err := c.origin.LoadConfig(ctx)
		if err != nil {
			return nil, err
		}
		// Best-effort: a failed SET leaves the origin authoritative.
		_ = c.client.Set(ctx, c.key, raw, c.ttlWithJitter()).Err()
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Invalidate drops the cached document so the next load hits the origin.
// Used by the admin reload path.
func (c *ConfigCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *ConfigCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
