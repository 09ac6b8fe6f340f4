package rates

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/logger"
)

// DefaultCachePrefix is the key prefix used when none is given.
const DefaultCachePrefix = "fx:rates:"

// Cache keeps the latest quoted rates per side in Redis.
// Redis failures are logged and never hide the inner supplier.
type Cache struct {
	inner  Supplier
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewCache wraps inner with a Redis cache holding entries for ttl.
func NewCache(inner Supplier, client redis.Cmdable, ttl time.Duration, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &Cache{inner: inner, client: client, ttl: ttl, prefix: prefix}
}

func (c *Cache) key(side Side) string {
	return c.prefix + side.String()
}

// Rates returns cached rates when present, otherwise asks the inner
// supplier and stores its answer.
func (c *Cache) Rates(ctx context.Context, side Side) (map[fx.Currency]fx.Rate, error) {
	key := c.key(side)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var quoted map[fx.Currency]fx.Rate
		jerr := json.Unmarshal(data, &quoted)
		if jerr == nil {
			cacheTotal.WithLabelValues(side.String(), "hit").Inc()
			return quoted, nil
		}
		logger.Warn("discarding malformed cached rates", zap.String("key", key), zap.Error(jerr))
		cacheTotal.WithLabelValues(side.String(), "error").Inc()
	case errors.Is(err, redis.Nil):
		cacheTotal.WithLabelValues(side.String(), "miss").Inc()
	default:
		logger.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
		cacheTotal.WithLabelValues(side.String(), "error").Inc()
	}

	quoted, err := c.inner.Rates(ctx, side)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(quoted)
	if err != nil {
		logger.Warn("failed to encode rates for cache", zap.Error(err))
		return quoted, nil
	}
	if err := c.client.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		logger.Warn("rate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return quoted, nil
}

// Invalidate drops the cached rates of both sides.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key(Buy), c.key(Sell)).Err()
}
