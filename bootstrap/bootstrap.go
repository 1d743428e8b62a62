// Package bootstrap 负责服务启动前的通用基础设施初始化。
package bootstrap

import (
	"context"
	"flag"

	"github.com/daddysai/tradeledger/config"
	"github.com/daddysai/tradeledger/logging"
	"github.com/daddysai/tradeledger/tracing"
)

// Bootstrapper 处理配置加载、日志与追踪的初始化。
type Bootstrapper struct {
	ServiceName string
	Version     string
	Logger      *logging.Logger
}

// New 创建引导器实例。
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
	}
}

// Initialize 解析命令行标志、加载配置并初始化日志系统。
// 配置会反序列化到传入的 cfg 结构体中。
func (b *Bootstrapper) Initialize(cfg *config.Config) error {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/config.toml", "path to config file")
	flag.Parse()

	// 先用默认参数初始化 Logger，保证配置加载失败也有日志可查。
	logging.InitLogger(b.ServiceName, "bootstrap")
	b.Logger = logging.Default()

	if err := config.Load(configPath, cfg); err != nil {
		b.Logger.Error("failed to load config", "error", err)
		return err
	}

	// 配置就绪后应用 Log 段：调整级别；配置了文件输出则重建 Logger。
	logging.SetLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		logger := logging.NewFromConfig(logging.Config{
			Service:    b.ServiceName,
			Module:     "server",
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		})
		logging.SetDefault(logger)
	}
	b.Logger = logging.Default()

	return nil
}

// SetupTracing 初始化 OpenTelemetry 追踪器，返回关闭函数。
func (b *Bootstrapper) SetupTracing(cfg config.TracingConfig) func() {
	shutdown, err := tracing.InitTracer(cfg)
	if err != nil {
		b.Logger.Error("failed to init tracer", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			b.Logger.Error("failed to shutdown tracer", "error", err)
		}
	}
}
