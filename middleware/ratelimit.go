package middleware

import (
	"log/slog"
	"net/http"

	"github.com/daddysai/tradeledger/limiter"
	"github.com/daddysai/tradeledger/response"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit 构造通用限流中间件，默认以客户端 IP 作为限流标识。
func RateLimit(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail-Open：限流组件故障时不阻断业务，但记录告警日志。
			slog.ErrorContext(c.Request.Context(), "rate limiter internal error, fail-open applied", "key", key, "error", err)
			c.Next()
			return
		}

		if !allowed {
			slog.WarnContext(c.Request.Context(), "request rejected by rate limiter", "key", key, "path", c.Request.URL.Path)
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "too many requests", "access rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// NewLocalRateLimit 便捷构造基于本地令牌桶的限流中间件。
// limit: 每秒允许的请求数；burst: 允许的突发请求数。
func NewLocalRateLimit(limit int, burst int) gin.HandlerFunc {
	return RateLimit(limiter.NewLocalLimiter(rate.Limit(limit), burst))
}
