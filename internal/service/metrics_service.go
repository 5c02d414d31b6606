package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// MetricsSnapshot is a lightweight view of the collected metrics.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ValidationsTotal         uint64    `json:"validations_total"`
	RejectedValidations      uint64    `json:"rejected_validations"`
	PersistenceConflicts     uint64    `json:"persistence_conflicts"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	cacheLatency         prometheus.Observer
	cacheWrite           prometheus.Observer
	cacheHitRatio        prometheus.Gauge
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	validations          *prometheus.CounterVec
	violations           *prometheus.CounterVec
	persistenceConflicts prometheus.Counter
	auditDuration        prometheus.Histogram
	auditPairs           *prometheus.GaugeVec
	dbQueryDuration      *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	validationCount      uint64
	rejectedCount        uint64
	conflictRetryCount   uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_validations_total",
		Help: "Schedule entry validations by outcome",
	}, []string{"outcome"})

	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_violations_total",
		Help: "Schedule violations by kind and dimension",
	}, []string{"kind", "dimension"})

	persistenceConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_persistence_conflicts_total",
		Help: "Writes rejected by the database overlap constraints",
	})

	auditDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_audit_duration_seconds",
		Help:    "Duration of term conflict sweeps",
		Buckets: prometheus.DefBuckets,
	})

	auditPairs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "timetable_audit_conflict_pairs",
		Help: "Conflicting pairs found by the latest sweep of a term",
	}, []string{"term"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		validations, violations, persistenceConflicts, auditDuration, auditPairs, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:             registry,
		handler:              handler,
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		cacheLatency:         cacheLatency,
		cacheWrite:           cacheWrite,
		cacheHitRatio:        cacheHitRatio,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
		validations:          validations,
		violations:           violations,
		persistenceConflicts: persistenceConflicts,
		auditDuration:        auditDuration,
		auditPairs:           auditPairs,
		dbQueryDuration:      dbQueryDuration,
	}
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
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
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
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
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
}

// RecordValidation counts one rule evaluation and the violations it produced.
func (m *MetricsService) RecordValidation(violations []models.ScheduleViolation) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.validationCount, 1)
	if len(violations) == 0 {
		m.validations.WithLabelValues("accepted").Inc()
		return
	}
	atomic.AddUint64(&m.rejectedCount, 1)
	m.validations.WithLabelValues("rejected").Inc()
	for _, v := range violations {
		m.violations.WithLabelValues(string(v.Kind), string(v.Dimension)).Inc()
	}
}

// RecordPersistenceConflict counts a write rejected by the storage race guard.
func (m *MetricsService) RecordPersistenceConflict() {
	if m == nil {
		return
	}
	m.persistenceConflicts.Inc()
	atomic.AddUint64(&m.conflictRetryCount, 1)
}

// ObserveAudit records the duration and result size of a term sweep.
func (m *MetricsService) ObserveAudit(term models.Term, pairs int, duration time.Duration) {
	if m == nil {
		return
	}
	m.auditDuration.Observe(duration.Seconds())
	m.auditPairs.WithLabelValues(term.String()).Set(float64(pairs))
}

// Snapshot returns aggregated metrics.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ValidationsTotal:         atomic.LoadUint64(&m.validationCount),
		RejectedValidations:      atomic.LoadUint64(&m.rejectedCount),
		PersistenceConflicts:     atomic.LoadUint64(&m.conflictRetryCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
