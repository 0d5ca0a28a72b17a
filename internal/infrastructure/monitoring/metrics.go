package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inappgate"

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several gates (or tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Gate metrics
	Classifications *prometheus.CounterVec
	Interceptions   *prometheus.CounterVec
	Redirects       *prometheus.CounterVec

	// gRPC metrics
	GRPCCalls    *prometheus.CounterVec
	GRPCDuration *prometheus.HistogramVec

	startTime time.Time

	// Snapshot for the JSON stats endpoint
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current totals for the JSON stats endpoint.
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	Embedded          int64   `json:"embedded"`
	RedirectsAllowed  int64   `json:"redirects_allowed"`
	RedirectsRejected int64   `json:"redirects_rejected"`
	AvgDurationMillis float64 `json:"avg_duration_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector with its own registry, including
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "route"},
		),

		Classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classifications_total",
				Help:      "User-Agent classifications by matched app",
			},
			[]string{"app"},
		),
		Interceptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interceptions_total",
				Help:      "Interception decisions by state and action",
			},
			[]string{"state", "action"},
		),
		Redirects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Guarded redirect decisions by result and reason",
			},
			[]string{"result", "reason"},
		),

		GRPCCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "grpc_calls_total",
				Help:      "Total number of gRPC calls",
			},
			[]string{"method", "code"},
		),
		GRPCDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "grpc_duration_seconds",
				Help:      "gRPC call duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1},
			},
			[]string{"method"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Gate uptime in seconds",
		},
		m.uptime,
	)

	return m
}

func (m *Metrics) uptime() float64 {
	return time.Since(m.startTime).Seconds()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, route).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordClassification records a User-Agent verdict. app is empty for
// regular browsers.
func (m *Metrics) RecordClassification(app string) {
	if app == "" {
		app = "none"
	}
	m.Classifications.WithLabelValues(app).Inc()
}

// RecordInterception records an interception outcome.
func (m *Metrics) RecordInterception(state, action string) {
	m.Interceptions.WithLabelValues(state, action).Inc()

	if state == "embedded" {
		m.mu.Lock()
		m.snapshot.Embedded++
		m.mu.Unlock()
	}
}

// RecordRedirect records a guarded redirect decision.
func (m *Metrics) RecordRedirect(allowed bool, reason string) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	if reason == "" {
		reason = "none"
	}
	m.Redirects.WithLabelValues(result, reason).Inc()

	m.mu.Lock()
	if allowed {
		m.snapshot.RedirectsAllowed++
	} else {
		m.snapshot.RedirectsRejected++
	}
	m.mu.Unlock()
}

// RecordGRPCCall records a gRPC call
func (m *Metrics) RecordGRPCCall(method, code string, duration time.Duration) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
	m.GRPCDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Snapshot returns a copy of the current totals.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.TotalRequests > 0 {
		s.AvgDurationMillis = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = m.uptime()
	return s
}
