package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/admin-api/internal/models"
)

// MetricsService owns a private Prometheus registry for the admin API and keeps running
// totals for the JSON summary served to superusers.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler
	started  time.Time

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec
	copies       *prometheus.CounterVec
	bulkActions  *prometheus.CounterVec
	jobs         *prometheus.CounterVec

	requests      atomic.Uint64
	requestNanos  atomic.Uint64
	cacheHits     atomic.Uint64
	cacheMisses   atomic.Uint64
	recordsCopied atomic.Uint64
	bulkRuns      atomic.Uint64
	jobsSucceeded atomic.Uint64
	jobsFailed    atomic.Uint64
}

// NewMetricsService registers the admin collectors together with the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &MetricsService{
		registry: reg,
		handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		started:  time.Now(),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route template.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route template.",
		}, []string{"method", "path", "status"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache reads by result.",
		}, []string{"result"}),
		cacheLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cache_operation_seconds",
			Help:    "Cache round trip latency by operation.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		copies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_copy_records_total",
			Help: "Records created or failed by record copies.",
		}, []string{"model", "outcome"}),
		bulkActions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_bulk_actions_total",
			Help: "Bulk actions executed from list views.",
		}, []string{"model", "action", "status"}),
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_jobs_processed_total",
			Help: "Background jobs processed per queue.",
		}, []string{"queue", "type", "outcome"}),
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Share of cache reads that were hits.",
	}, func() float64 { return m.hitRatio() })
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request. path is the route template.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
	m.requests.Add(1)
	m.requestNanos.Add(uint64(d))
}

// RecordCacheOperation records a cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheLatency.WithLabelValues("get").Observe(d.Seconds())
}

// ObserveCacheWrite records a cache write.
func (m *MetricsService) ObserveCacheWrite(d time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(d.Seconds())
}

// ObserveCopy counts records created and failures collected by one record copy.
func (m *MetricsService) ObserveCopy(model string, created, failed int) {
	if m == nil {
		return
	}
	m.copies.WithLabelValues(model, "created").Add(float64(created))
	m.copies.WithLabelValues(model, "failed").Add(float64(failed))
	m.recordsCopied.Add(uint64(created))
}

// ObserveBulkAction counts a bulk action run with its HTTP status.
func (m *MetricsService) ObserveBulkAction(model, action string, status int) {
	if m == nil {
		return
	}
	m.bulkActions.WithLabelValues(model, action, strconv.Itoa(status)).Inc()
	m.bulkRuns.Add(1)
}

// ObserveJob counts a processed background job.
func (m *MetricsService) ObserveJob(queue, jobType string, err error) {
	if m == nil {
		return
	}
	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
		m.jobsFailed.Add(1)
	} else {
		m.jobsSucceeded.Add(1)
	}
	m.jobs.WithLabelValues(queue, jobType, outcome).Inc()
}

func (m *MetricsService) hitRatio() float64 {
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Snapshot aggregates the counters since process start.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	now := time.Now()
	snap := models.SystemMetrics{
		CacheHitRatio: m.hitRatio(),
		CacheHits:     m.cacheHits.Load(),
		CacheMisses:   m.cacheMisses.Load(),
		RequestsTotal: m.requests.Load(),
		RecordsCopied: m.recordsCopied.Load(),
		BulkActions:   m.bulkRuns.Load(),
		JobsSucceeded: m.jobsSucceeded.Load(),
		JobsFailed:    m.jobsFailed.Load(),
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(now.Sub(m.started).Seconds()),
		GeneratedAt:   now.UTC(),
	}
	if snap.RequestsTotal > 0 {
		snap.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(snap.RequestsTotal) / float64(time.Millisecond)
	}
	return snap
}
