package middleware

import (
	"net/http"
	"strings"

	"github.com/daddysai/tradeledger/contextx"
	"github.com/daddysai/tradeledger/jwt"
	"github.com/daddysai/tradeledger/response"
	"github.com/gin-gonic/gin"
)

const ContextUserIDKey = "user_id"

// JWTAuth 校验 Bearer 令牌并将会话用户注入上下文。
// 交易记录的归属判定以此处解析出的用户为准，而非客户端自报的参数。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "missing authorization header", "")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid authorization format", "")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(parts[1], secret)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusUnauthorized, "invalid or expired token", "")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set("username", claims.Username)
		c.Request = c.Request.WithContext(contextx.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// GetUserID 从 Gin 上下文中提取会话用户 ID。
func GetUserID(c *gin.Context) (string, bool) {
	val, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}
