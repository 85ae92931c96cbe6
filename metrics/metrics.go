// Package metrics 导出 Feed 缓存的 Prometheus 指标。
//
// 所有记录方法对 nil *FeedMetrics 安全，调用方无需判空。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 缓存读取结果。
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// FeedMetrics 汇总 Feed 读取、刷新、预热三类指标。
type FeedMetrics struct {
	registry *prometheus.Registry

	lookups          *prometheus.CounterVec
	refreshLatency   *prometheus.HistogramVec
	candidatesScored prometheus.Counter
	feedSize         prometheus.Histogram
	warmups          *prometheus.CounterVec
}

// New 创建指标并注册到 registry；registry 为 nil 时新建一个独立的 registry。
func New(registry *prometheus.Registry) *FeedMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &FeedMetrics{registry: registry}

	m.lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedcache",
			Subsystem: "feed",
			Name:      "lookups_total",
			Help:      "Feed cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	m.refreshLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "feedcache",
			Subsystem: "feed",
			Name:      "refresh_duration_seconds",
			Help:      "Latency of regenerating and saving a user feed",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"status"},
	)

	m.candidatesScored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "feedcache",
		Subsystem: "feed",
		Name:      "candidates_scored_total",
		Help:      "Candidates scored across all refreshes",
	})

	m.feedSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "feedcache",
		Subsystem: "feed",
		Name:      "size",
		Help:      "Number of program ids written per refresh",
		Buckets:   []float64{0, 10, 50, 100, 250, 500},
	})

	m.warmups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "feedcache",
			Subsystem: "warmup",
			Name:      "users_total",
			Help:      "Users processed by the warmer, by outcome (refreshed, skipped, failed)",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(m.lookups, m.refreshLatency, m.candidatesScored, m.feedSize, m.warmups)
	return m
}

// Registry 返回底层 registry。
func (m *FeedMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics 的 HTTP handler。
func (m *FeedMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveLookup 记录一次缓存读取。
func (m *FeedMetrics) ObserveLookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

// ObserveRefresh 记录一次刷新：耗时、打分的候选数、写入的 Feed 长度。
func (m *FeedMetrics) ObserveRefresh(d time.Duration, scored, size int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.refreshLatency.WithLabelValues(status).Observe(d.Seconds())
	if err != nil {
		return
	}
	m.candidatesScored.Add(float64(scored))
	m.feedSize.Observe(float64(size))
}

// ObserveWarmup 记录预热中单个用户的处理结果。
func (m *FeedMetrics) ObserveWarmup(outcome string) {
	if m == nil {
		return
	}
	m.warmups.WithLabelValues(outcome).Inc()
}
