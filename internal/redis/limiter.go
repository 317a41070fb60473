package redis

import (
	"context"
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed slide_window.lua
var slideWindowScript string

// KeyPrefix 限流 key 前缀
const KeyPrefix = "qual:ratelimit:"

// Limiter 限流器
type Limiter interface {
	// Limit 返回 true 表示被限流
	Limit(ctx context.Context, key string) (bool, error)
}

// SlideWindowLimiter 基于有序集合的滑动窗口限流器
type SlideWindowLimiter struct {
	cmd      redis.Cmdable
	prefix   string
	interval time.Duration
	rate     int
	now      func() time.Time
}

// NewSlideWindowLimiter 创建滑动窗口限流器
//   - interval: 窗口大小
//   - rate: 窗口内允许的请求数
func NewSlideWindowLimiter(cmd redis.Cmdable, prefix string, interval time.Duration, rate int) *SlideWindowLimiter {
	return &SlideWindowLimiter{
		cmd:      cmd,
		prefix:   KeyPrefix + prefix,
		interval: interval,
		rate:     rate,
		now:      time.Now,
	}
}

// Limit 记录一次请求，超过阈值时返回 true 且不计入窗口
func (l *SlideWindowLimiter) Limit(ctx context.Context, key string) (bool, error) {
	return l.cmd.Eval(ctx, slideWindowScript, []string{l.prefix + key},
		l.interval.Milliseconds(), l.rate, l.now().UnixMilli(), uuid.NewString()).Bool()
}
