package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/archive-api/internal/models"
)

const metricsNamespace = "archive"

// MetricsService owns the Prometheus registry of the archive and keeps running totals for the JSON snapshot.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec
	uploads         prometheus.Counter
	ocrRuns         *prometheus.CounterVec
	encryptionOps   *prometheus.CounterVec
	auditRecords    *prometheus.CounterVec

	totals metricTotals
}

// metricTotals mirrors the collectors with plain atomics so Snapshot never has to gather the registry.
type metricTotals struct {
	uploads, ocr, encryption, audit uint64
	cacheHits, cacheMisses          uint64
	requests, requestNanos          uint64
	dbQueries, dbNanos              uint64
}

// NewMetricsService registers the archive collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request latency by route and status.", Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "path", "status"})

	m.cacheLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "read_seconds",
		Help: "Redis lookup latency.", Buckets: prometheus.DefBuckets,
	})
	m.cacheWrite = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "write_seconds",
		Help: "Redis write latency.", Buckets: prometheus.DefBuckets,
	})
	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "hit_ratio",
		Help: "Share of cache lookups served from Redis.",
	})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "lookups_total",
		Help: "Cache lookups by result.",
	}, []string{"result"})

	m.dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "db", Name: "query_duration_seconds",
		Help: "Latency of the heavier archive queries.", Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	m.uploads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace, Name: "uploads_total",
		Help: "Stored document files.",
	})
	m.ocrRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Name: "ocr_runs_total",
		Help: "OCR extractions by outcome.",
	}, []string{"status"})
	m.encryptionOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Name: "encryption_operations_total",
		Help: "Encrypt and decrypt operations by outcome.",
	}, []string{"operation", "status"})
	m.auditRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Name: "audit_records_total",
		Help: "Audit trail entries by severity.",
	}, []string{"severity"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Name: "goroutines",
		Help: "Live goroutines.",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheLookups,
		m.dbQueryDuration, m.uploads, m.ocrRuns, m.encryptionOps, m.auditRecords, goroutines,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.totals.requests, 1)
	atomic.AddUint64(&m.totals.requestNanos, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.totals.cacheHits, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.totals.cacheMisses, 1)
	}
	m.cacheHitRatio.Set(m.hitRatio())
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.totals.dbQueries, 1)
	atomic.AddUint64(&m.totals.dbNanos, uint64(duration.Nanoseconds()))
}

// RecordUpload counts a stored document file.
func (m *MetricsService) RecordUpload() {
	if m == nil {
		return
	}
	m.uploads.Inc()
	atomic.AddUint64(&m.totals.uploads, 1)
}

// RecordOCR counts an OCR run by its resulting status.
func (m *MetricsService) RecordOCR(status string) {
	if m == nil {
		return
	}
	m.ocrRuns.WithLabelValues(status).Inc()
	atomic.AddUint64(&m.totals.ocr, 1)
}

// RecordEncryption counts an encrypt or decrypt operation.
func (m *MetricsService) RecordEncryption(operation string, ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failed"
	}
	m.encryptionOps.WithLabelValues(operation, status).Inc()
	atomic.AddUint64(&m.totals.encryption, 1)
}

// RecordAudit counts an audit trail entry.
func (m *MetricsService) RecordAudit(severity string) {
	if m == nil {
		return
	}
	m.auditRecords.WithLabelValues(severity).Inc()
	atomic.AddUint64(&m.totals.audit, 1)
}

// Snapshot returns the running totals for the JSON metrics summary.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	t := &m.totals
	return models.SystemMetrics{
		CacheHitRatio:            m.hitRatio(),
		CacheHits:                atomic.LoadUint64(&t.cacheHits),
		CacheMisses:              atomic.LoadUint64(&t.cacheMisses),
		RequestsTotal:            atomic.LoadUint64(&t.requests),
		AverageRequestDurationMs: averageMs(atomic.LoadUint64(&t.requestNanos), atomic.LoadUint64(&t.requests)),
		DBQueryCount:             atomic.LoadUint64(&t.dbQueries),
		AverageDBQueryDurationMs: averageMs(atomic.LoadUint64(&t.dbNanos), atomic.LoadUint64(&t.dbQueries)),
		Uploads:                  atomic.LoadUint64(&t.uploads),
		OCRRuns:                  atomic.LoadUint64(&t.ocr),
		EncryptionOps:            atomic.LoadUint64(&t.encryption),
		AuditRecords:             atomic.LoadUint64(&t.audit),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() float64 {
	hits := atomic.LoadUint64(&m.totals.cacheHits)
	total := hits + atomic.LoadUint64(&m.totals.cacheMisses)
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func averageMs(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}
