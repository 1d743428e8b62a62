package middleware

import (
	"log/slog"
	"time"

	"github.com/daddysai/tradeledger/contextx"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// Logger 访问日志中间件，输出结构化请求日志；超过 slowThreshold 的请求升级为 Warn。
func Logger(logger *slog.Logger, slowThreshold time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		cost := time.Since(start)

		spanCtx := trace.SpanContextFromContext(c.Request.Context())
		traceID := ""
		if spanCtx.HasTraceID() {
			traceID = spanCtx.TraceID().String()
		}

		attrs := []any{
			"trace_id", traceID,
			"request_id", contextx.GetRequestID(c.Request.Context()),
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"cost", cost,
			"user_agent", c.Request.UserAgent(),
		}

		if slowThreshold > 0 && cost > slowThreshold {
			logger.WarnContext(c.Request.Context(), "HTTP Slow Request", attrs...)
			return
		}

		logger.InfoContext(c.Request.Context(), "HTTP Request", attrs...)
	}
}
