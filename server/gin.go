package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/daddysai/tradeledger/config"
	"github.com/gin-gonic/gin"
)

const defaultShutdownTimeout = 5 * time.Second

// GinServer 封装标准 http.Server 运行 Gin 引擎，并提供优雅启停。
type GinServer struct {
	server *http.Server
	logger *slog.Logger
	addr   string
}

// NewGinServer 按服务配置创建 HTTP 服务器实例，读写超时取自配置。
func NewGinServer(engine *gin.Engine, cfg config.ServerConfig, logger *slog.Logger) *GinServer {
	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &GinServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
			IdleTimeout:       cfg.HTTP.IdleTimeout,
		},
		addr:   addr,
		logger: logger,
	}
}

// Start 启动 HTTP 服务器。阻塞直到上下文取消或监听失败。
func (s *GinServer) Start(ctx context.Context) error {
	s.logger.Info("starting http server", "addr", s.addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server stopping due to context cancellation")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Stop 优雅停止服务器，等待在途请求在超时时间内完成。
func (s *GinServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping http server gracefully")
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}
