// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标收集器
type Metrics struct {
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	httpRequestsInFlight  prometheus.Gauge
	agentRunsTotal        *prometheus.CounterVec
	agentRunDuration      *prometheus.HistogramVec
	alertsTotal           *prometheus.CounterVec
	remediationItemsTotal *prometheus.CounterVec
	bookingsTotal         *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	lockAttemptsTotal     *prometheus.CounterVec
}

var defaultMetrics *Metrics

// Init 初始化指标收集器，同一命名空间只能初始化一次
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bnb"
	}

	m := &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		agentRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_runs_total",
				Help:      "Total number of agent runs",
			},
			[]string{"agent", "action", "status"},
		),
		agentRunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_run_duration_seconds",
				Help:      "Agent run duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"agent", "action"},
		),
		alertsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "availability_alerts_total",
				Help:      "Total number of availability alerts raised",
			},
			[]string{"kind", "severity"},
		),
		remediationItemsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remediation_items_total",
				Help:      "Total number of remediation items by outcome",
			},
			[]string{"kind", "result"},
		),
		bookingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_total",
				Help:      "Total number of booking attempts by outcome",
			},
			[]string{"status"},
		),
		notificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of booking notifications",
			},
			[]string{"channel", "status"},
		),
		lockAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "room_lock_attempts_total",
				Help:      "Total number of room lock attempts",
			},
			[]string{"result"},
		),
	}

	defaultMetrics = m
	return m
}

// GetMetrics 获取默认指标收集器
func GetMetrics() *Metrics {
	if defaultMetrics == nil {
		return Init("")
	}
	return defaultMetrics
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 metrics 端点本身
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP 处理器
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAgentRun 记录一次代理运行
func (m *Metrics) RecordAgentRun(agent, action, status string, duration time.Duration) {
	m.agentRunsTotal.WithLabelValues(agent, action, status).Inc()
	m.agentRunDuration.WithLabelValues(agent, action).Observe(duration.Seconds())
}

// RecordAlert 记录一条可用性告警
func (m *Metrics) RecordAlert(kind, severity string) {
	m.alertsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordRemediationItem 记录单条修复结果 (applied/unchanged/skipped/failed)
func (m *Metrics) RecordRemediationItem(kind, result string) {
	m.remediationItemsTotal.WithLabelValues(kind, result).Inc()
}

// RecordBooking 记录预订结果
func (m *Metrics) RecordBooking(status string) {
	m.bookingsTotal.WithLabelValues(status).Inc()
}

// RecordNotification 记录通知发送结果
func (m *Metrics) RecordNotification(channel, status string) {
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}

// RecordLockAttempt 记录房间锁获取结果
func (m *Metrics) RecordLockAttempt(result string) {
	m.lockAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest 手动记录 HTTP 请求（用于非中间件场景）
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m := GetMetrics()
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
