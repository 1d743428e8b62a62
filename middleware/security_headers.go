package middleware

import (
	"strconv"

	"github.com/daddysai/tradeledger/config"
	"github.com/gin-gonic/gin"
)

// SecurityHeadersWithConfig 返回 HTTP 安全响应头中间件。
func SecurityHeadersWithConfig(cfg config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		cfg = withSecurityDefaults(cfg)

		setHeaderIfValue(c, "X-Frame-Options", cfg.FrameOptions)
		setHeaderIfValue(c, "X-Content-Type-Options", cfg.ContentTypeOptions)
		setHeaderIfValue(c, "Referrer-Policy", cfg.ReferrerPolicy)

		if cfg.HSTSMaxAge > 0 {
			setHeaderIfValue(c, "Strict-Transport-Security", "max-age="+strconv.Itoa(cfg.HSTSMaxAge))
		}

		c.Next()
	}
}

func withSecurityDefaults(cfg config.SecurityConfig) config.SecurityConfig {
	if cfg.FrameOptions == "" {
		cfg.FrameOptions = "DENY"
	}
	if cfg.ContentTypeOptions == "" {
		cfg.ContentTypeOptions = "nosniff"
	}
	if cfg.ReferrerPolicy == "" {
		cfg.ReferrerPolicy = "no-referrer"
	}
	return cfg
}

func setHeaderIfValue(c *gin.Context, key, value string) {
	if value == "" {
		return
	}
	c.Header(key, value)
}
