/**
 * Redis verification cache
 *
 * Caches finished verification results keyed by the queried title/author
 * pair, so repeated scans of the same cover never spend provider quota.
 * All failures degrade to a cache miss.
 */

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shelfscan/ocrparse/internal/logging"
	"github.com/shelfscan/ocrparse/internal/verify"
)

const keyPrefix = "ocrparse:verify:"

// RedisCache implements verify.ResultCache on top of Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisCache connects to the given Redis URL and verifies the
// connection with a ping.
func NewRedisCache(redisURL string, ttl time.Duration, logger *logging.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.NewLogger("cache")
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Get returns a cached verification result, or a miss on any error.
func (c *RedisCache) Get(ctx context.Context, key string) (*verify.Verification, bool) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}

	var result verify.Verification
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry corrupt, ignoring", "key", key, "error", err)
		return nil, false
	}
	return &result, true
}

// Set stores a verification result with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, result *verify.Verification) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
