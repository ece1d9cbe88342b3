package service

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling
// pipeline and the attendance capture engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	regenerateDuration prometheus.Histogram
	backtrackTotal     prometheus.Counter
	regenerateOutcome  *prometheus.CounterVec

	scanOutcome   *prometheus.CounterVec
	sweepMarked   prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	cacheHitRatio prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
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

	regenerateDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_regenerate_duration_seconds",
		Help:    "Wall-clock duration of timetable regenerations",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
	})

	backtrackTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_backtracks_total",
		Help: "Total number of back-tracking steps taken by the scheduler",
	})

	regenerateOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_regenerations_total",
		Help: "Regeneration attempts by outcome",
	}, []string{"outcome"})

	scanOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_scans_total",
		Help: "Attendance scan attempts by outcome",
	}, []string{"outcome"})

	sweepMarked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sweep_marked_total",
		Help: "Students marked absent by the sweep",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_cache_hits_total",
		Help: "Materialisation cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_cache_misses_total",
		Help: "Materialisation cache misses",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_cache_hit_ratio",
		Help: "Ratio of materialisation cache hits to total lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, regenerateDuration, backtrackTotal,
		regenerateOutcome, scanOutcome, sweepMarked, cacheHits, cacheMisses, cacheHitRatio, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		regenerateDuration: regenerateDuration,
		backtrackTotal:     backtrackTotal,
		regenerateOutcome:  regenerateOutcome,
		scanOutcome:        scanOutcome,
		sweepMarked:        sweepMarked,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		cacheHitRatio:      cacheHitRatio,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return m.handler
}

// ObserveRequest records a finished HTTP request.
func (m *MetricsService) ObserveRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveRegeneration records a regeneration attempt and its outcome.
func (m *MetricsService) ObserveRegeneration(outcome string, duration time.Duration, backtracks int) {
	if m == nil {
		return
	}
	m.regenerateDuration.Observe(duration.Seconds())
	m.regenerateOutcome.WithLabelValues(outcome).Inc()
	m.backtrackTotal.Add(float64(backtracks))
}

// ObserveScan records a scan attempt outcome.
func (m *MetricsService) ObserveScan(outcome string) {
	if m == nil {
		return
	}
	m.scanOutcome.WithLabelValues(outcome).Inc()
}

// ObserveSweep records the number of absences written by a sweep pass.
func (m *MetricsService) ObserveSweep(marked int) {
	if m == nil {
		return
	}
	m.sweepMarked.Add(float64(marked))
}

// ObserveCache records a materialisation cache lookup.
func (m *MetricsService) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
		m.cacheHits.Inc()
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
		m.cacheMisses.Inc()
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	if total := hits + atomic.LoadUint64(&m.cacheMissCount); total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}
