// Package server 提供 HTTP 服务器的启动与生命周期管理封装。
package server

import "context"

// Server 接口定义了一个通用的服务器行为契约。
// 任何实现了 Start 和 Stop 方法的类型都可以被统一纳入应用生命周期管理。
type Server interface {
	// Start 启动服务器。应当是阻塞调用，直到服务器退出或上下文被取消。
	Start(ctx context.Context) error
	// Stop 优雅地停止服务器，等待在途请求完成并释放资源。
	Stop(ctx context.Context) error
}
