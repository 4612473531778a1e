// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。持有独立的 registry，多个实例互不冲突。
type Collector struct {
	registry *prometheus.Registry

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 运行指标
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	runsActive   prometheus.Gauge
	runsRejected prometheus.Counter

	// 后端调用指标
	backendCallsTotal   *prometheus.CounterVec
	backendCallDuration *prometheus.HistogramVec

	// 去重指标
	duplicatesTotal *prometheus.CounterVec

	// 事件流指标
	eventsEmitted prometheus.Counter
	eventsDropped prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 运行指标
	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of hierarchy runs by final status",
		},
		[]string{"status"},
	)

	c.runDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Hierarchy run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	c.runsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Number of runs currently executing",
		},
	)

	c.runsRejected = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_rejected_total",
			Help:      "Total number of runs rejected by the concurrency limit",
		},
	)

	// 后端调用指标
	c.backendCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_calls_total",
			Help:      "Total number of model backend invocations",
		},
		[]string{"node_type", "status"},
	)

	c.backendCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_call_duration_seconds",
			Help:      "Model backend invocation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"node_type"},
	)

	// 去重指标
	c.duplicatesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_short_circuited_total",
			Help:      "Total number of short-circuited duplicate invocations",
		},
		[]string{"kind"}, // already_executed, duplicate_task, active_conflict
	)

	// 事件流指标
	c.eventsEmitted = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Total number of progress events emitted",
		},
	)

	c.eventsDropped = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of progress events dropped on full queues",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Handler 返回暴露本收集器指标的 HTTP 处理器。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// =============================================================================
// 🏃 运行指标记录
// =============================================================================

// RecordRun 记录一次运行的最终状态与耗时
func (c *Collector) RecordRun(status string, duration time.Duration) {
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RunStarted 活跃运行数加一
func (c *Collector) RunStarted() { c.runsActive.Inc() }

// RunFinished 活跃运行数减一
func (c *Collector) RunFinished() { c.runsActive.Dec() }

// RunRejected 记录被并发上限拒绝的运行
func (c *Collector) RunRejected() { c.runsRejected.Inc() }

// =============================================================================
// 🤖 后端调用指标记录
// =============================================================================

// RecordBackendCall 记录后端调用
func (c *Collector) RecordBackendCall(nodeType, status string, duration time.Duration) {
	c.backendCallsTotal.WithLabelValues(nodeType, status).Inc()
	c.backendCallDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
}

// =============================================================================
// 🔁 去重指标记录
// =============================================================================

// RecordDuplicate 记录短路的重复调用
func (c *Collector) RecordDuplicate(kind string) {
	c.duplicatesTotal.WithLabelValues(kind).Inc()
}

// =============================================================================
// 📡 事件流指标记录
// =============================================================================

// RecordEventEmitted 记录发射的进度事件
func (c *Collector) RecordEventEmitted() { c.eventsEmitted.Inc() }

// AddEventsDropped 累加因队列满而丢弃的事件数
func (c *Collector) AddEventsDropped(n uint64) {
	if n > 0 {
		c.eventsDropped.Add(float64(n))
	}
}
