package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/metrics"
)

// Metrics 记录请求数和耗时，路径使用路由模板避免标签爆炸
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		// 错误响应由外层 ErrorHandler 写出，这里按映射结果记录状态码
		status := c.Writer.Status()
		if !c.Writer.Written() && len(c.Errors) > 0 {
			status = MapError(c.Errors.Last().Err).Status
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
