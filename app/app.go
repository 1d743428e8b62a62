// Package app 提供应用程序的生命周期管理，包括服务启动、信号处理与资源清理。
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daddysai/tradeledger/server"
)

const defaultStopTimeout = 10 * time.Second

// App 是应用程序的核心容器，统一管理注册的服务器与清理函数。
type App struct {
	name   string
	logger *slog.Logger
	opts   options
	ctx    context.Context
	cancel func()
}

// New 创建应用程序实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		name:   name,
		logger: logger,
		opts:   o,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run 启动应用程序并阻塞，直到收到退出信号或关键服务器失败。
// 退出时按注册顺序停止服务器，再执行清理函数。
func (a *App) Run() error {
	a.logger.Info("application starting", "name", a.name, "pid", os.Getpid())

	for _, srv := range a.opts.servers {
		go func(s server.Server) {
			if err := s.Start(a.ctx); err != nil {
				a.logger.Error("server failed to start", "error", err)
				a.cancel()
			}
		}(srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		a.logger.Info("shutting down application", "name", a.name, "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Info("shutting down application due to internal failure", "name", a.name)
	}

	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer shutdownCancel()

	for _, srv := range a.opts.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("server failed to stop", "error", err)
			return err
		}
	}

	for _, cleanup := range a.opts.cleanups {
		cleanup()
	}

	a.logger.Info("application shut down gracefully")
	return nil
}
