package officer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"custodia/pkg/platform/sentinel"
)

// RedisCache is a read-through cache in front of a Store. It serves the
// session-validation hot path; the database stays authoritative, so cache
// failures fall through to the inner store and writes invalidate the key.
// Negative results are never cached: a provisioning race must not turn into
// a lingering "not found".
type RedisCache struct {
	inner  Store
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps a store with a redis read-through cache.
func NewRedisCache(inner Store, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(id int64) string {
	return "custodia:officer:" + strconv.FormatInt(id, 10)
}

func (c *RedisCache) FindByID(ctx context.Context, id int64) (*Officer, error) {
	key := cacheKey(id)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var o Officer
		if err := json.Unmarshal(payload, &o); err == nil {
			return &o, nil
		}
		// Corrupt entry: drop it and fall through.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) && c.logger != nil {
		c.logger.WarnContext(ctx, "officer cache read failed", "error", err)
	}

	o, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(o); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "officer cache write failed", "error", err)
		}
	}
	return o, nil
}

// FindByBadge always hits the inner store: badge lookups happen once per
// authentication and must see the freshest credential state.
func (c *RedisCache) FindByBadge(ctx context.Context, badgeNumber string) (*Officer, error) {
	return c.inner.FindByBadge(ctx, badgeNumber)
}

// TouchLastLogin writes through and invalidates the cached officer.
func (c *RedisCache) TouchLastLogin(ctx context.Context, id int64) error {
	if err := c.inner.TouchLastLogin(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return fmt.Errorf("touch last login: %w", err)
	}
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "officer cache invalidation failed", "error", err)
	}
	return nil
}
