package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 发信指标集合，进程内只注册一次
type Metrics struct {
	sendTotal    *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec
	testTotal    *prometheus.CounterVec
}

// NewMetrics 创建并注册发信指标；重复注册时复用已存在的采集器
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatemail_mailer_send_total",
				Help: "邮件发送次数",
			},
			[]string{"provider", "status"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatemail_mailer_send_duration_seconds",
				Help:    "邮件发送耗时（秒）",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		testTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatemail_mailer_connection_test_total",
				Help: "发信服务连接测试次数",
			},
			[]string{"provider", "status"},
		),
	}
	if reg == nil {
		return m
	}
	m.sendTotal = registerOrReuse(reg, m.sendTotal).(*prometheus.CounterVec)
	m.sendDuration = registerOrReuse(reg, m.sendDuration).(*prometheus.HistogramVec)
	m.testTotal = registerOrReuse(reg, m.testTotal).(*prometheus.CounterVec)
	return m
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector
		}
		panic(err)
	}
	return c
}

// Wrap 为 Provider 添加指标
func (m *Metrics) Wrap(p Provider) Provider {
	if m == nil || p == nil {
		return p
	}
	return &MetricsProvider{provider: p, metrics: m}
}

// MetricsProvider 记录发送结果与耗时的装饰器
type MetricsProvider struct {
	provider Provider
	metrics  *Metrics
}

// Kind 服务类型
func (p *MetricsProvider) Kind() ProviderKind {
	return p.provider.Kind()
}

// TestConnection 测试连接并计数
func (p *MetricsProvider) TestConnection(ctx context.Context) error {
	err := p.provider.TestConnection(ctx)
	p.metrics.testTotal.WithLabelValues(string(p.Kind()), statusLabel(err)).Inc()
	return err
}

// Send 发送并记录指标
func (p *MetricsProvider) Send(ctx context.Context, msg Message) (SendResult, error) {
	start := time.Now()
	result, err := p.provider.Send(ctx, msg)
	kind := string(p.Kind())
	p.metrics.sendDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	p.metrics.sendTotal.WithLabelValues(kind, statusLabel(err)).Inc()
	return result, err
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsRecipientRejected(err):
		return "rejected"
	default:
		return "failed"
	}
}
