package database

import (
	"context"
	"time"

	"medi-chat-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接。
// 与 MySQL 不同，Redis 仅承担响应缓存，连接失败时降级为无缓存运行，
// 此时 RDB 保持为 nil，调用方必须容忍 nil 客户端。
func InitRedis(addr, password string, db int) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password, // no password set
		DB:       db,       // use default DB
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warnf("Redis connection failed: %v. Continuing without response caching.", err)
		RDB = nil
		return
	}

	RDB = client
	log.Info("Redis client connected successfully")
}
