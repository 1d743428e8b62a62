// Package health 提供依赖健康检查函数与对应的 HTTP 处理器。
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// Checker 定义健康检查函数原型。
type Checker func() error

const defaultMongoHealthTimeout = 2 * time.Second

// MongoChecker 返回基于已建立连接的 MongoDB 健康检查函数。
func MongoChecker(client *mongo.Client, timeout time.Duration) Checker {
	return func() error {
		if client == nil {
			return errors.New("mongodb client is nil")
		}
		if timeout <= 0 {
			timeout = defaultMongoHealthTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongodb ping failed: %w", err)
		}
		return nil
	}
}

// Handler 返回聚合所有依赖检查结果的 Gin 处理器。
// 任一依赖失败返回 503，并逐项给出状态。
func Handler(checkers map[string]Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		detail := make(map[string]string, len(checkers))

		for name, check := range checkers {
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				detail[name] = err.Error()
				continue
			}
			detail[name] = "ok"
		}

		c.JSON(status, gin.H{
			"status":  http.StatusText(status),
			"checks":  detail,
			"checked": time.Now().UTC(),
		})
	}
}
