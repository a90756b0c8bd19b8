// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/stella/internal/platform/constants"
)

// RedisCache implements [Cache] using Redis.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a new Redis-backed Cache.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// UserCacheKey returns the cache key of an end-user session.
func UserCacheKey(sessionID string) string {
	return constants.RedisPrefixUserSession + sessionID
}

/*
Get retrieves the raw cached value for key.

Parameters:
  - context: context.Context
  - key: string

Returns:
  - []byte: Stored value
  - error: ErrCacheMiss if absent, or connectivity errors
*/
func (cache *RedisCache) Get(context context.Context, key string) ([]byte, error) {
	value, err := cache.client.Get(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis_session_cache_get_failed: %w", err)
	}
	return value, nil
}

// Set stores value under key for ttl.
func (cache *RedisCache) Set(context context.Context, key string, value []byte, ttl time.Duration) error {
	if err := cache.client.Set(context, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_cache_set_failed: %w", err)
	}
	return nil
}
