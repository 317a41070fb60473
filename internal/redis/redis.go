// Package redis Redis 连接与限流
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pu-ac-cn/qual-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// NewClient 按配置创建客户端，不做连接检查
func NewClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Init 初始化全局 Redis 连接，Addr 为空时不启用
func Init(cfg *config.RedisConfig) error {
	if cfg.Addr == "" {
		return nil
	}
	c := NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return fmt.Errorf("连接 Redis 失败: %w", err)
	}

	client = c
	return nil
}

// GetClient 获取 Redis 客户端实例，未启用时为 nil
func GetClient() *redis.Client {
	return client
}

// Enabled 是否已启用 Redis
func Enabled() bool {
	return client != nil
}

// Ping 检查连接
func Ping(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
