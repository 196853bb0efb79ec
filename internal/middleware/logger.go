package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerMiddleware 使用 zap 记录结构化请求日志
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 开始时间
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 处理请求
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// 尝试从 Context 中获取会话中间件解析出的用户名
		user, _ := c.Get(ContextUserKey)
		if user == nil {
			user = "anonymous"
		}

		// 记录结构化日志
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user", user.(string)),
			zap.Duration("latency", latency),
		}

		// 如果有错误信息，也一并记录
		if len(c.Errors) > 0 {
			for _, e := range c.Errors.Errors() {
				logger.Error(e, fields...)
			}
		} else {
			if status >= 500 {
				logger.Error("server error", fields...)
			} else if status >= 400 {
				logger.Warn("client error", fields...)
			} else {
				logger.Info("request success", fields...)
			}
		}
	}
}
