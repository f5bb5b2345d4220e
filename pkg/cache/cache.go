// Package cache 提供了基于 Redis 的响应缓存。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss 表示缓存中不存在指定的键。
var ErrCacheMiss = errors.New("cache: key not found")

// Cache 定义了响应缓存的操作接口。所有实现必须可被并发使用。
type Cache interface {
	// Get 按键读取缓存的字符串值，键不存在时返回 ErrCacheMiss。
	Get(ctx context.Context, key string) (string, error)
	// Set 写入缓存并设置过期时间。
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache 创建一个基于 Redis 的 Cache 实例。
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

// Get 从 Redis 读取值。缓存值以 JSON 编码的字符串存储。
func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache entry: %w", err)
	}
	var value string
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return "", fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return value, nil
}

// Set 将值以 JSON 编码后写入 Redis。
func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}
