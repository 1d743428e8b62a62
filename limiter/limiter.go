// Package limiter 提供进程内限流器实现。
package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter 接口定义限流器的通用行为。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalLimiter 基于令牌桶算法的本地限流器，适用于单实例部署。
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter 创建本地限流器。
// r: 每秒生成的令牌数（平均速率）；b: 令牌桶容量（突发上限）。
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{
		limiter: rate.NewLimiter(r, b),
	}
}

// Allow 检查请求是否放行。
// 本地限流为全局限流，key 参数在此实现中未参与判定。
func (l *LocalLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return l.limiter.Allow(), nil
}
