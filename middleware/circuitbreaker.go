package middleware

import (
	"errors"
	"net/http"

	"github.com/daddysai/tradeledger/breaker"
	"github.com/daddysai/tradeledger/config"
	"github.com/daddysai/tradeledger/metrics"
	"github.com/daddysai/tradeledger/response"
	"github.com/gin-gonic/gin"
)

// HTTPCircuitBreaker Gin 入站熔断中间件。
// 以 5xx 响应计入失败样本；熔断打开后直接返回 503。
func HTTPCircuitBreaker(cfg config.CircuitBreakerConfig, m *metrics.Metrics) gin.HandlerFunc {
	b := breaker.NewBreaker(breaker.Settings{
		Name:   "HTTP-Inbound",
		Config: cfg,
	}, m)

	return func(c *gin.Context) {
		_, err := b.Execute(func() (any, error) {
			c.Next()
			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, http.ErrHandlerTimeout
			}
			return nil, nil
		})

		if err != nil && errors.Is(err, breaker.ErrServiceUnavailable) {
			response.ErrorWithStatus(c, http.StatusServiceUnavailable, "service unavailable", "circuit breaker open")
			c.Abort()
		}
	}
}
