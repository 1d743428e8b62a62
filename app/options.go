package app

import "github.com/daddysai/tradeledger/server"

// Option 配置应用程序的函数式选项。
type Option func(*options)

type options struct {
	servers  []server.Server
	cleanups []func()
}

// WithServer 注册一个或多个服务器，随应用生命周期统一启停。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 注册应用关闭时执行的清理函数。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		o.cleanups = append(o.cleanups, cleanup)
	}
}
