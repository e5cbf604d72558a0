package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Execution metrics
	Executions        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	ExecutionsActive  prometheus.Gauge

	// Browser metrics
	BrowserRunning  prometheus.Gauge
	BrowserLaunches *prometheus.CounterVec
	BrowserPages    prometheus.Gauge

	// Skill metrics
	SkillsTotal       prometheus.Gauge
	FactorySessions   prometheus.Gauge
	FactoryCompletion prometheus.Counter

	// Stream metrics
	StreamConnections prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_service_calls_total",
				Help: "Total number of component operations",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_service_duration_seconds",
				Help:    "Component operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_service_errors_total",
				Help: "Total number of component errors by class",
			},
			[]string{"service", "method", "error_type"},
		),

		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_executions_total",
				Help: "Total number of spawned processes",
			},
			[]string{"kind", "outcome"},
		),
		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_execution_duration_seconds",
				Help:    "Process wall-clock duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"kind"},
		),
		ExecutionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_executions_active",
				Help: "Number of processes currently running",
			},
		),

		BrowserRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_browser_running",
				Help: "1 when the browser engine is live",
			},
		),
		BrowserLaunches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_browser_launches_total",
				Help: "Browser engine launch attempts",
			},
			[]string{"outcome"},
		),
		BrowserPages: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_browser_pages_open",
				Help: "Number of pages currently open",
			},
		),

		SkillsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_skills",
				Help: "Number of skills in the registry at last listing",
			},
		),
		FactorySessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_factory_sessions",
				Help: "Number of live skill factory sessions",
			},
		),
		FactoryCompletion: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_factory_completions_total",
				Help: "Skills created through the factory dialogue",
			},
		),

		StreamConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_stream_connections",
				Help: "Number of open streaming connections",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sandbox_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Uptime returns time since the collector was created
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordServiceCall records a component operation
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a classified component error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordExecution records a finished process
func (m *Metrics) RecordExecution(kind, outcome string, duration time.Duration) {
	m.Executions.WithLabelValues(kind, outcome).Inc()
	m.ExecutionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordBrowserLaunch records an engine launch attempt
func (m *Metrics) RecordBrowserLaunch(outcome string) {
	m.BrowserLaunches.WithLabelValues(outcome).Inc()
}

// SetBrowserRunning sets engine liveness
func (m *Metrics) SetBrowserRunning(running bool) {
	if running {
		m.BrowserRunning.Set(1)
		return
	}
	m.BrowserRunning.Set(0)
}
