package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 5 * time.Minute

// RedisCache caches resolved settings. Every failure degrades to a miss so
// the resolver never depends on redis being up.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache over the shared client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(courseID string) string { return "classsettings:" + courseID }

// Get returns the cached setting and whether it was present.
func (c *RedisCache) Get(ctx context.Context, courseID string) (*ClassSetting, bool) {
	raw, err := c.client.Get(ctx, cacheKey(courseID)).Bytes()
	if err != nil {
		return nil, false
	}
	var s ClassSetting
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// Set stores the setting with a short TTL.
func (c *RedisCache) Set(ctx context.Context, courseID string, s ClassSetting) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(courseID), raw, cacheTTL).Err()
}

// Invalidate drops the cached entry after a write.
func (c *RedisCache) Invalidate(ctx context.Context, courseID string) {
	_ = c.client.Del(ctx, cacheKey(courseID)).Err()
}
