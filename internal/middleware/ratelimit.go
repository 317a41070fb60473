package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/logger"
	"github.com/pu-ac-cn/qual-backend/internal/metrics"
	"github.com/pu-ac-cn/qual-backend/internal/redis"
	"github.com/pu-ac-cn/qual-backend/pkg/response"
	"go.uber.org/zap"
)

// RateLimit 按客户端 IP 限流，limiter 为 nil 时不限流
// Redis 不可用时放行
func RateLimit(limiter redis.Limiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		limited, err := limiter.Limit(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.L().Warn("限流检查失败", zap.Error(err))
			c.Next()
			return
		}
		if limited {
			if m != nil {
				m.RateLimitedTotal.WithLabelValues(c.FullPath()).Inc()
			}
			response.Error(c, response.TooManyRequests("请求过于频繁，请稍后再试"))
			return
		}
		c.Next()
	}
}
