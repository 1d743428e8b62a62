// Package config 提供统一的配置加载与管理能力：TOML 文件 + 环境变量覆盖 + 热更新。
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/daddysai/tradeledger/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构。
type Config struct {
	Version        string               `mapstructure:"version"        toml:"version"`
	Server         ServerConfig         `mapstructure:"server"         toml:"server"`
	Log            LogConfig            `mapstructure:"log"            toml:"log"`
	Data           DataConfig           `mapstructure:"data"           toml:"data"`
	JWT            JWTConfig            `mapstructure:"jwt"            toml:"jwt"`
	Snowflake      SnowflakeConfig      `mapstructure:"snowflake"      toml:"snowflake"`
	Metrics        MetricsConfig        `mapstructure:"metrics"        toml:"metrics"`
	Tracing        TracingConfig        `mapstructure:"tracing"        toml:"tracing"`
	RateLimit      RateLimitConfig      `mapstructure:"ratelimit"      toml:"ratelimit"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitbreaker" toml:"circuitbreaker"`
	CORS           CORSConfig           `mapstructure:"cors"           toml:"cors"`
	Security       SecurityConfig       `mapstructure:"security"       toml:"security"`
}

// ServerConfig 定义服务器运行时的基础网络与环境参数。
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr              string        `mapstructure:"addr"                toml:"addr"`
		Timeout           time.Duration `mapstructure:"timeout"             toml:"timeout"`
		ReadTimeout       time.Duration `mapstructure:"read_timeout"        toml:"read_timeout"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" toml:"read_header_timeout"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"       toml:"write_timeout"`
		IdleTimeout       time.Duration `mapstructure:"idle_timeout"        toml:"idle_timeout"`
		MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"`
		Port              int           `mapstructure:"port"                toml:"port" validate:"required,min=1,max=65535"`
	} `mapstructure:"http" toml:"http"`
}

// DataConfig 汇集持久化存储的数据源配置。
type DataConfig struct {
	MongoDB MongoDBConfig `mapstructure:"mongodb" toml:"mongodb"`
}

// MongoDBConfig 定义 MongoDB 的连接参数。
type MongoDBConfig struct {
	URI               string        `mapstructure:"uri"                toml:"uri"                validate:"required"`
	Database          string        `mapstructure:"database"           toml:"database"           validate:"required"`
	TradesCollection  string        `mapstructure:"trades_collection"  toml:"trades_collection"`
	LedgerCollection  string        `mapstructure:"ledger_collection"  toml:"ledger_collection"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"    toml:"connect_timeout"`
	MinPoolSize       uint64        `mapstructure:"min_pool_size"      toml:"min_pool_size"`
	MaxPoolSize       uint64        `mapstructure:"max_pool_size"      toml:"max_pool_size"`
}

// LogConfig 定义日志输出、级别与切割策略。
type LogConfig struct {
	Level         string        `mapstructure:"level"          toml:"level"`
	File          string        `mapstructure:"file"           toml:"file"`
	MaxSize       int           `mapstructure:"max_size"       toml:"max_size"`    // 单个文件最大大小 (MB)。
	MaxBackups    int           `mapstructure:"max_backups"    toml:"max_backups"` // 最大备份数。
	MaxAge        int           `mapstructure:"max_age"        toml:"max_age"`     // 最大保留天数。
	Compress      bool          `mapstructure:"compress"       toml:"compress"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold" toml:"slow_threshold"` // HTTP 慢请求阈值。
}

// JWTConfig 身份认证令牌相关配置。
type JWTConfig struct {
	Enabled        bool          `mapstructure:"enabled"         toml:"enabled"`
	Secret         string        `mapstructure:"secret"          toml:"secret"`
	Issuer         string        `mapstructure:"issuer"          toml:"issuer"`
	ExpireDuration time.Duration `mapstructure:"expire_duration" toml:"expire_duration"`
}

// SnowflakeConfig 分布式 ID 生成器参数。
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id"`
}

// MetricsConfig 监控指标暴露配置。
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"`
	Path    string `mapstructure:"path"    toml:"path"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
}

// TracingConfig 分布式链路追踪配置。
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"`
}

// RateLimitConfig 定义令牌桶限流参数。
type RateLimitConfig struct {
	Rate    int  `mapstructure:"rate"    toml:"rate"`
	Burst   int  `mapstructure:"burst"   toml:"burst"`
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// CircuitBreakerConfig 定义熔断器保护策略。
type CircuitBreakerConfig struct {
	Interval    time.Duration `mapstructure:"interval"     toml:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"      toml:"timeout"`
	MaxRequests uint32        `mapstructure:"max_requests" toml:"max_requests"`
	Enabled     bool          `mapstructure:"enabled"      toml:"enabled"`
}

// CORSConfig 定义跨域配置。
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"           toml:"enabled"`
	AllowOrigins     []string      `mapstructure:"allow_origins"     toml:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"     toml:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"     toml:"allow_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials" toml:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"           toml:"max_age"`
}

// SecurityConfig 定义 HTTP 安全响应头配置。
type SecurityConfig struct {
	Enabled            bool   `mapstructure:"enabled"              toml:"enabled"`
	FrameOptions       string `mapstructure:"frame_options"        toml:"frame_options"`
	ContentTypeOptions string `mapstructure:"content_type_options" toml:"content_type_options"`
	ReferrerPolicy     string `mapstructure:"referrer_policy"      toml:"referrer_policy"`
	HSTSMaxAge         int    `mapstructure:"hsts_max_age"         toml:"hsts_max_age"`
}

var (
	vInstance = viper.New()
	reloadMu  sync.Mutex
	onReload  []func(*Config)
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	onReload = append(onReload, hook)
}

// Load 读取 TOML 配置文件并反序列化到 conf，随后开启文件监听实现热更新。
// 支持 APP_ 前缀的环境变量覆盖（层级用下划线分隔）。
func Load(path string, conf any) error {
	vInstance.SetConfigFile(path)
	vInstance.SetConfigType("toml")

	vInstance.SetEnvPrefix("APP")
	vInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vInstance.AutomaticEnv()

	if err := vInstance.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}

	if err := vInstance.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	vInstance.WatchConfig()
	vInstance.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		if unmarshalErr := vInstance.Unmarshal(conf); unmarshalErr != nil {
			slog.Error("reload config unmarshal failed", "error", unmarshalErr)
			return
		}

		if validateErr := validate.Struct(conf); validateErr != nil {
			slog.Error("reload config validation failed", "error", validateErr)
			return
		}

		if c, ok := conf.(*Config); ok {
			// 日志级别跟随配置热更新
			logging.SetLevel(c.Log.Level)

			reloadMu.Lock()
			hooks := append([]func(*Config){}, onReload...)
			reloadMu.Unlock()
			for _, hook := range hooks {
				hook(c)
			}
		}

		slog.Info("config hot-reloaded and validated successfully")
	})

	return nil
}

// GetViper 暴露底层 viper 实例，供特殊场景读取原始配置。
func GetViper() *viper.Viper {
	return vInstance
}
