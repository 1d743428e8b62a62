package api

import (
	"github.com/daddysai/tradeledger/config"
	"github.com/daddysai/tradeledger/health"
	"github.com/daddysai/tradeledger/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册业务路由与健康检查。
// cfg.JWT.Enabled 为真时 /api 路由组强制会话认证。
func RegisterRoutes(engine *gin.Engine, handler *TradeHandler, cfg *config.Config, checkers map[string]health.Checker) {
	engine.GET("/healthz", health.Handler(checkers))

	apiGroup := engine.Group("/api")
	if cfg.JWT.Enabled {
		apiGroup.Use(middleware.JWTAuth(cfg.JWT.Secret))
	}

	trades := apiGroup.Group("/trades")
	{
		trades.GET("", handler.ListTrades)
		trades.POST("", handler.CreateTrade)
		trades.GET("/:tradeId", handler.GetTrade)
		trades.PUT("/:tradeId", handler.UpdateTrade)
		trades.DELETE("/:tradeId", handler.DeleteTrade)
	}

	ledger := apiGroup.Group("/ledger")
	{
		ledger.GET("", handler.ListLedger)
		ledger.GET("/summary", handler.LedgerSummary)
	}
}
