package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"labot-admin-go/pkg/log"
)

// NewRedis 创建 Redis 客户端并测试连接。addr 为空时返回 nil，调用方据此关闭缓存。
func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		log.Warnf("[Redis] 未配置地址，缓存已禁用")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Redis client connected successfully")
	return rdb, nil
}
