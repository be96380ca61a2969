package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"z-novel-lore-api/pkg/logger"
	"z-novel-lore-api/pkg/tracer"
)

// TraceIDHeader 追踪 ID 响应头
const TraceIDHeader = "X-Trace-ID"

// Trace OpenTelemetry 追踪，探针与指标接口不产生 span
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			for _, p := range DefaultSkipPaths {
				if strings.HasPrefix(r.URL.Path, p) {
					return false
				}
			}
			return true
		}),
	)
}

// TraceContext 把 trace/span id 与世界 id 写入日志上下文
func TraceContext(worldID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if worldID != "" {
			ctx = logger.WithContext(ctx, logger.WorldIDKey, worldID)
		}
		if traceID := tracer.TraceID(ctx); traceID != "" {
			c.Set(ContextKeyTraceID, traceID)
			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, tracer.SpanID(ctx))
			c.Header(TraceIDHeader, traceID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
