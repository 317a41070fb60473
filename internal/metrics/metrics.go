// Package metrics Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qual"

// 登录方式
const (
	MethodPassword = "password"
	MethodXYSSO    = "xysso"
	MethodRefresh  = "refresh"
)

// 登录结果
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics 全部指标
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// TokensIssuedTotal 按签发方式统计的令牌对数量
	TokensIssuedTotal *prometheus.CounterVec
	LoginsTotal       *prometheus.CounterVec
	// RateLimitedTotal 被限流的请求
	RateLimitedTotal *prometheus.CounterVec
}

// New 创建并注册指标，registry 为 nil 时新建
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP 请求总数",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP 请求耗时",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_issued_total",
				Help:      "签发的令牌对数量",
			},
			[]string{"method"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "登录次数",
			},
			[]string{"method", "result"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "被限流的请求数",
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TokensIssuedTotal,
		m.LoginsTotal,
		m.RateLimitedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Login 记录一次登录结果，成功时同时计入令牌签发
func (m *Metrics) Login(method string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LoginsTotal.WithLabelValues(method, ResultFailure).Inc()
		return
	}
	m.LoginsTotal.WithLabelValues(method, ResultSuccess).Inc()
	m.TokensIssuedTotal.WithLabelValues(method).Inc()
}

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
