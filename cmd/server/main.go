// Command server 启动交易账本服务：装配配置、日志、追踪、存储与 HTTP 路由。
package main

import (
	"os"

	"github.com/daddysai/tradeledger/api"
	"github.com/daddysai/tradeledger/app"
	"github.com/daddysai/tradeledger/bootstrap"
	"github.com/daddysai/tradeledger/config"
	"github.com/daddysai/tradeledger/database/mongodb"
	"github.com/daddysai/tradeledger/docstore"
	"github.com/daddysai/tradeledger/health"
	"github.com/daddysai/tradeledger/idgen"
	"github.com/daddysai/tradeledger/metrics"
	"github.com/daddysai/tradeledger/middleware"
	"github.com/daddysai/tradeledger/server"
	"github.com/daddysai/tradeledger/trade"
	"github.com/gin-gonic/gin"
)

const serviceName = "tradeledger"

func main() {
	b := bootstrap.New(serviceName, "1.0.0")

	var cfg config.Config
	if err := b.Initialize(&cfg); err != nil {
		os.Exit(1)
	}
	logger := b.Logger

	if err := idgen.Init(cfg.Snowflake); err != nil {
		logger.Error("failed to init id generator", "error", err)
		os.Exit(1)
	}

	tracerCleanup := func() {}
	if cfg.Tracing.Enabled {
		tracerCleanup = b.SetupTracing(cfg.Tracing)
	}

	m := metrics.NewMetrics(serviceName)
	var metricsCleanup func()
	if cfg.Metrics.Enabled {
		metricsCleanup = m.ExposeHttp(cfg.Metrics.Port)
	}

	client, mongoCleanup, err := mongodb.NewMongoClient(&cfg.Data.MongoDB, m)
	if err != nil {
		logger.Error("failed to init mongodb", "error", err)
		os.Exit(1)
	}

	db := client.Database(cfg.Data.MongoDB.Database)
	tradesCol := docstore.NewMongoCollection(db.Collection(cfg.Data.MongoDB.TradesCollection))
	ledgerCol := docstore.NewMongoCollection(db.Collection(cfg.Data.MongoDB.LedgerCollection))

	ledger := trade.NewLedger(ledgerCol, logger.Logger)
	store := trade.NewStore(tradesCol, ledger, m, logger.Logger)
	handler := api.NewTradeHandler(store, ledger)

	if cfg.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	middlewares := []gin.HandlerFunc{
		middleware.Recovery(logger.Logger),
		middleware.RequestID(),
		middleware.Logger(logger.Logger, cfg.Log.SlowThreshold),
		middleware.HTTPMetricsWithOptions(m, middleware.MetricsOptions{
			SlowThreshold: cfg.Log.SlowThreshold,
			SkipPaths:     []string{"/healthz"},
		}),
		middleware.SecurityHeadersWithConfig(cfg.Security),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.MaxBodyBytes(cfg.Server.HTTP.MaxBodyBytes),
		middleware.Timeout(cfg.Server.HTTP.Timeout),
	}
	if cfg.Tracing.Enabled {
		middlewares = append(middlewares, middleware.TracingMiddleware(serviceName))
	}
	if cfg.RateLimit.Enabled {
		middlewares = append(middlewares, middleware.NewLocalRateLimit(cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}
	if cfg.CircuitBreaker.Enabled {
		middlewares = append(middlewares, middleware.HTTPCircuitBreaker(cfg.CircuitBreaker, m))
	}

	engine := server.NewGinEngine(middlewares...)
	api.RegisterRoutes(engine, handler, &cfg, map[string]health.Checker{
		"mongodb": health.MongoChecker(client, cfg.Data.MongoDB.ConnectTimeout),
	})

	httpSrv := server.NewGinServer(engine, cfg.Server, logger.Logger)

	opts := []app.Option{
		app.WithServer(httpSrv),
		app.WithCleanup(mongoCleanup),
		app.WithCleanup(tracerCleanup),
	}
	if metricsCleanup != nil {
		opts = append(opts, app.WithCleanup(metricsCleanup))
	}
	application := app.New(serviceName, logger.Logger, opts...)

	if err := application.Run(); err != nil {
		logger.Error("application exited with error", "error", err)
		os.Exit(1)
	}
}
