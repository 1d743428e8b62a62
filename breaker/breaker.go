// Package breaker 提供基于 gobreaker 的熔断器封装，集成指标与日志。
package breaker

import (
	"errors"
	"log/slog"

	"github.com/daddysai/tradeledger/config"
	"github.com/daddysai/tradeledger/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// ErrServiceUnavailable 表示服务当前处于熔断状态。
var ErrServiceUnavailable = errors.New("service unavailable: circuit breaker is open")

// Breaker 封装 gobreaker 实例。
type Breaker struct {
	circuitBreaker *gobreaker.CircuitBreaker
	stateGauge     *prometheus.GaugeVec
}

// Settings 定义熔断器的初始化参数。
type Settings struct {
	Name         string
	Config       config.CircuitBreakerConfig
	FailureRatio float64
	MinRequests  uint32
}

// NewBreaker 初始化熔断器；未启用时返回直通实现。
func NewBreaker(st Settings, m *metrics.Metrics) *Breaker {
	if !st.Config.Enabled {
		return &Breaker{circuitBreaker: nil}
	}

	failureRatio := st.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.5
	}

	minRequests := st.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}

	var stateGauge *prometheus.GaugeVec
	if m != nil {
		stateGauge = m.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (1: Closed, 2: Open, 3: Half-Open)",
		}, []string{"name"})
	}

	gs := gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: st.Config.MaxRequests,
		Interval:    st.Config.Interval,
		Timeout:     st.Config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			if stateGauge != nil {
				stateGauge.WithLabelValues(name).Set(float64(to))
			}
		},
	}

	return &Breaker{
		circuitBreaker: gobreaker.NewCircuitBreaker(gs),
		stateGauge:     stateGauge,
	}
}

// Execute 执行受熔断保护的函数。
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	if b.circuitBreaker == nil {
		return fn()
	}

	res, err := b.circuitBreaker.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}

	return res, nil
}
