package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the solver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec
	solveBacktracks prometheus.Histogram
	solvePlaced     *prometheus.CounterVec
	repairTotal     *prometheus.CounterVec
	lockContention  prometheus.Counter
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

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solver_duration_seconds",
		Help:    "Duration of timetable solver runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"status"})

	solveBacktracks := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_backtracks",
		Help:    "Backtracks per solver run",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	solvePlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_lessons_total",
		Help: "Lessons placed and left unplaced by solver runs",
	}, []string{"outcome"})

	repairTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lesson_repairs_total",
		Help: "Single-lesson move attempts by outcome",
	}, []string{"outcome"})

	lockContention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "term_lock_contention_total",
		Help: "Writes rejected because the term lock was held",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, solveDuration, solveBacktracks, solvePlaced, repairTotal, lockContention, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		solveDuration:   solveDuration,
		solveBacktracks: solveBacktracks,
		solvePlaced:     solvePlaced,
		repairTotal:     repairTotal,
		lockContention:  lockContention,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveSolve records one solver run.
func (m *MetricsService) ObserveSolve(status string, duration time.Duration, placed, unplaced, backtracks int) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.solveBacktracks.Observe(float64(backtracks))
	m.solvePlaced.WithLabelValues("placed").Add(float64(placed))
	m.solvePlaced.WithLabelValues("unplaced").Add(float64(unplaced))
}

// ObserveRepair records one single-lesson move attempt.
func (m *MetricsService) ObserveRepair(outcome string) {
	if m == nil {
		return
	}
	m.repairTotal.WithLabelValues(outcome).Inc()
}

// ObserveLockContention records a write rejected by the term lock.
func (m *MetricsService) ObserveLockContention(string) {
	if m == nil {
		return
	}
	m.lockContention.Inc()
}
