// Package middleware 提供 Gin 的通用治理中间件实现。
package middleware

import (
	"github.com/daddysai/tradeledger/contextx"
	"github.com/daddysai/tradeledger/idgen"
	"github.com/gin-gonic/gin"
)

const (
	HeaderXRequestID = "X-Request-ID"
)

// RequestID 返回生成或透传请求 ID 的中间件。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 优先透传上游已有的 Request ID
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = idgen.GenIDString()
		}

		c.Request = c.Request.WithContext(contextx.WithRequestID(c.Request.Context(), requestID))

		// 写回响应头，方便客户端追踪
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
