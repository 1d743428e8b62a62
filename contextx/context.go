// Package contextx 提供在 context.Context 中安全注入与提取业务上下文信息（用户 ID、请求 ID 等）的工具函数。
// 使用私有类型作为 Key，避免跨包冲突。
package contextx

import (
	"context"
)

type contextKey int

const (
	UserIDKey    contextKey = iota // 会话用户唯一标识 Key。
	RequestIDKey                   // 请求唯一标识 Key。
	IPKey                          // 客户端 IP Key。
	UAKey                          // 用户代理 Key。
)

// KeyNames 映射 Key 到日志字段名。
var KeyNames = map[contextKey]string{
	UserIDKey:    "user_id",
	RequestIDKey: "request_id",
	IPKey:        "client_ip",
	UAKey:        "user_agent",
}

// WithUserID 将会话用户 ID 注入 Context。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID 提取会话用户 ID，不存在返回空字符串。
func GetUserID(ctx context.Context) string {
	if val, ok := ctx.Value(UserIDKey).(string); ok {
		return val
	}
	return ""
}

// WithRequestID 将请求 ID 注入 Context。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 提取请求 ID。
func GetRequestID(ctx context.Context) string {
	if val, ok := ctx.Value(RequestIDKey).(string); ok {
		return val
	}
	return ""
}

// WithIP 将客户端 IP 注入 Context。
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, IPKey, ip)
}

// GetIP 提取客户端 IP。
func GetIP(ctx context.Context) string {
	if val, ok := ctx.Value(IPKey).(string); ok {
		return val
	}
	return ""
}

// WithUA 将用户代理注入 Context。
func WithUA(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, UAKey, ua)
}

// GetUA 提取用户代理。
func GetUA(ctx context.Context) string {
	if val, ok := ctx.Value(UAKey).(string); ok {
		return val
	}
	return ""
}
