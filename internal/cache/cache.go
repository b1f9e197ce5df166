package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-cached-user-api/internal/metrics"
)

// Default expirations: single-record entries live 5 minutes, list/search
// result entries only 3 since they go stale on every write anyway.
const (
	DefaultTTL = 300 * time.Second
	ListTTL    = 180 * time.Second
)

// RedisAPI is the subset of the go-redis client the cache depends on.
// Tests substitute an in-memory fake.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Client is a best-effort JSON key/value cache over redis. Every failure —
// transport, serialization, decode — is absorbed here and reported as a
// miss or no-op, never as an error: callers must behave correctly (only
// slower) when redis is down. Safe for concurrent use.
type Client struct {
	rdb     RedisAPI
	logger  *zap.Logger
	metrics *metrics.Publisher
}

// New returns a Client. metrics may be nil.
func New(rdb RedisAPI, logger *zap.Logger, pub *metrics.Publisher) *Client {
	return &Client{rdb: rdb, logger: logger, metrics: pub}
}

// Get looks up key and JSON-decodes the stored payload into dest.
// Returns false on miss, decode failure or transport failure.
func (c *Client) Get(ctx context.Context, key string, dest interface{}) bool {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		c.count(ctx, "CacheMiss")
		return false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		c.count(ctx, "CacheMiss")
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		c.count(ctx, "CacheMiss")
		return false
	}
	c.count(ctx, "CacheHit")
	return true
}

// Set serializes value to JSON and stores it under key with the given
// expiration. Values that fail to marshal are coerced to their string
// rendering. Returns false on any failure.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		// fall back to the string rendering, mirroring a lossy-but-total
		// serialization contract
		payload, err = json.Marshal(fmt.Sprint(value))
		if err != nil {
			c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
			return false
		}
	}

	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes a single key. Returns false when the key was absent or
// the operation failed.
func (c *Client) Delete(ctx context.Context, key string) bool {
	n, err := c.rdb.Del(ctx, key).Result()
	if err != nil {
		c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return n > 0
}

// DeletePattern enumerates keys matching a glob-style pattern and removes
// them in one bulk DEL. Returns the number of keys removed; 0 on no-match
// or failure.
func (c *Client) DeletePattern(ctx context.Context, pattern string) int {
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		c.logger.Warn("cache keys scan failed", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	return int(n)
}

// Ping reports whether redis is reachable. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) count(ctx context.Context, name string) {
	c.metrics.Count(ctx, name, nil)
}
