package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"z-novel-lore-api/pkg/logger"
)

// AccessLog 请求访问日志；写操作记 INFO，读操作与探针记 DEBUG
func AccessLog(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}
		args := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"subject", c.GetString(ContextKeySubject),
			"bytes", c.Writer.Size(),
		}
		ctx := c.Request.Context()
		switch {
		case c.Writer.Status() >= 500:
			logger.Warn(ctx, "api request failed", args...)
		case c.Request.Method == "GET" || c.Request.Method == "HEAD":
			logger.Debug(ctx, "api request", args...)
		default:
			logger.Info(ctx, "api request", args...)
		}
	}
}
