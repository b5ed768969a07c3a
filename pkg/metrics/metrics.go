// Package metrics provides Prometheus instrumentation for minelab.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric collectors for minelab.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	ClusterRuns      *prometheus.CounterVec
	ClusterIters     *prometheus.HistogramVec
	ClusterInertia   *prometheus.HistogramVec
	SweepRuns        *prometheus.CounterVec
	RulesGenerated   *prometheus.CounterVec
	PairsEvaluated   *prometheus.CounterVec
	ProjectionsTotal prometheus.Counter
	CacheLookups     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all minelab metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	// Include default Go and process collectors
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minelab_requests_total",
				Help: "Total HTTP requests by endpoint and status code.",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minelab_request_duration_seconds",
				Help:    "HTTP request latency distribution.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint"},
		),
		ActiveRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "minelab_active_requests",
				Help: "Number of requests currently being processed.",
			},
		),
		ClusterRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minelab_cluster_runs_total",
				Help: "Total k-means runs by endpoint and final state.",
			},
			[]string{"endpoint", "state"},
		),
		ClusterIters: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minelab_cluster_iterations",
				Help:    "Assignment passes per k-means run.",
				Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100, 250, 500},
			},
			[]string{"endpoint"},
		),
		ClusterInertia: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minelab_cluster_inertia",
				Help:    "Within-cluster sum of squared distances per run.",
				Buckets: prometheus.ExponentialBuckets(0.01, 10, 10),
			},
			[]string{"endpoint"},
		),
		SweepRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minelab_sweep_runs_total",
				Help: "Total k sweeps by endpoint.",
			},
			[]string{"endpoint"},
		),
		RulesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minelab_rules_generated_total",
				Help: "Association rules produced by strength.",
			},
			[]string{"strength"},
		),
		PairsEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minelab_pairs_evaluated_total",
				Help: "Candidate item pairs scored during mining.",
			},
			[]string{"endpoint"},
		),
		ProjectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minelab_projections_total",
				Help: "Total PCA projections computed.",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minelab_cache_lookups_total",
				Help: "Result cache lookups by outcome (hit/miss).",
			},
			[]string{"result"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.ClusterRuns,
		m.ClusterIters,
		m.ClusterInertia,
		m.SweepRuns,
		m.RulesGenerated,
		m.PairsEvaluated,
		m.ProjectionsTotal,
		m.CacheLookups,
	)

	return m
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed request's metrics.
func (m *Metrics) RecordRequest(endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordClusterRun records the outcome of a single k-means run.
func (m *Metrics) RecordClusterRun(endpoint, state string, iterations int, inertia float64) {
	m.ClusterRuns.WithLabelValues(endpoint, state).Inc()
	m.ClusterIters.WithLabelValues(endpoint).Observe(float64(iterations))
	m.ClusterInertia.WithLabelValues(endpoint).Observe(inertia)
}

// RecordSweep records a completed k sweep.
func (m *Metrics) RecordSweep(endpoint string) {
	m.SweepRuns.WithLabelValues(endpoint).Inc()
}

// RecordMining records rule counts keyed by strength plus the pairs scored.
func (m *Metrics) RecordMining(endpoint string, pairs int, byStrength map[string]int) {
	m.PairsEvaluated.WithLabelValues(endpoint).Add(float64(pairs))
	for strength, n := range byStrength {
		m.RulesGenerated.WithLabelValues(strength).Add(float64(n))
	}
}

// RecordProjection counts a computed projection.
func (m *Metrics) RecordProjection() {
	m.ProjectionsTotal.Inc()
}

// RecordCache records a result cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// Middleware returns an HTTP middleware that instruments requests.
func (m *Metrics) Middleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.ActiveRequests.Inc()
		defer m.ActiveRequests.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r)

		m.RecordRequest(endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so streamed responses pass through.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
