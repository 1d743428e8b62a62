// Package mongodb 负责 MongoDB 客户端的初始化，并通过 CommandMonitor 采集命令级指标。
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daddysai/tradeledger/config"
	"github.com/daddysai/tradeledger/metrics"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultConnectTimeout = 10 * time.Second

// NewMongoClient 初始化 MongoDB 客户端及对应的清理闭包。
// 通过 CommandMonitor 自动采集每一次命令的延迟与成功率到统一指标注册表。
func NewMongoClient(conf *config.MongoDBConfig, m *metrics.Metrics) (*mongo.Client, func(), error) {
	timeout := conf.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(conf.URI).
		SetMinPoolSize(conf.MinPoolSize).
		SetMaxPoolSize(conf.MaxPoolSize)

	if m != nil {
		monitor := &event.CommandMonitor{
			Succeeded: func(_ context.Context, evt *event.CommandSucceededEvent) {
				m.MongoOpsTotal.WithLabelValues(evt.CommandName, "success").Inc()
				m.MongoOpsDuration.WithLabelValues(evt.CommandName).Observe(evt.Duration.Seconds())
			},
			Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
				m.MongoOpsTotal.WithLabelValues(evt.CommandName, "failed").Inc()
				m.MongoOpsDuration.WithLabelValues(evt.CommandName).Observe(evt.Duration.Seconds())
			},
		}
		clientOpts.SetMonitor(monitor)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping 主节点验证连接可用性。
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	slog.Info("mongodb client initialized successfully", "db", conf.Database)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			slog.Error("failed to disconnect from mongodb", "error", err)
		}
	}

	return client, cleanup, nil
}
