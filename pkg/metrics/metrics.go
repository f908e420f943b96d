package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tinytales"

// Metrics 指标管理器
type Metrics struct {
	registry *prometheus.Registry

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 数据库指标
	dbQueryDuration *prometheus.HistogramVec

	// 生成流水线指标
	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	orphanedAudio  prometheus.Counter
	orphansSwept   prometheus.Counter
	voiceOps       *prometheus.CounterVec
	rateLimitedReq *prometheus.CounterVec
}

// NewMetrics 创建指标管理器，使用独立的 registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		dbQueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),

		// 外部调用可能很慢，桶放宽到两分钟
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_stage_duration_seconds",
				Help:      "Duration of each content generation stage",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),

		stageFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generation_stage_failures_total",
				Help:      "Content generation runs that stopped at a stage",
			},
			[]string{"stage"},
		),

		orphanedAudio: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_audio_total",
			Help:      "Audio objects stored without a catalog entry",
		}),

		orphansSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_audio_swept_total",
			Help:      "Orphaned audio objects removed by the sweeper",
		}),

		voiceOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "voice_operations_total",
				Help:      "Voice profile operations by outcome",
			},
			[]string{"operation", "status"},
		),

		rateLimitedReq: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}
}

// Registry 暴露给测试
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest 记录HTTP请求指标
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDBQuery 记录数据库查询指标
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// ObserveStage 记录流水线阶段耗时
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) ObserveOrphan() { m.orphanedAudio.Inc() }

func (m *Metrics) RecordOrphanSwept() { m.orphansSwept.Inc() }

// RecordVoiceOperation operation: create / delete，status: ok / error
func (m *Metrics) RecordVoiceOperation(operation, status string) {
	m.voiceOps.WithLabelValues(operation, status).Inc()
}

// OnAllow 实现限流观察者接口，放行的请求不计数
func (m *Metrics) OnAllow(route, key string) {}

// OnDeny 记录被限流的请求
func (m *Metrics) OnDeny(route, key string) {
	m.rateLimitedReq.WithLabelValues(route).Inc()
}
