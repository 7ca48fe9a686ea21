package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Conversation metrics
	SubmissionsTotal  *prometheus.CounterVec
	TransportFailures *prometheus.CounterVec
	MessagesAppended  *prometheus.CounterVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsDeleted prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// Registry returns the registry the metrics are registered on, for
// exposition handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// NewMetrics creates a new metrics collector registered on a private
// registry, so repeated construction in tests cannot collide.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

// NewMetricsOn creates a metrics collector registered on reg.
func NewMetricsOn(reg *prometheus.Registry) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),
		registry:  reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisha_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aisha_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisha_submissions_total",
				Help: "Total number of chat submissions by outcome",
			},
			[]string{"outcome"},
		),
		TransportFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisha_transport_failures_total",
				Help: "Total number of assistant transport failures by class",
			},
			[]string{"class"},
		),
		MessagesAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aisha_messages_appended_total",
				Help: "Total number of messages appended by sender role",
			},
			[]string{"role"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aisha_sessions_active",
				Help: "Number of chat sessions in the store",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aisha_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "aisha_sessions_deleted_total",
				Help: "Total number of sessions deleted",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aisha_ws_connections",
				Help: "Number of open WebSocket connections",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "aisha_uptime_seconds",
				Help: "Gateway uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordSubmission records a settled chat submission
func (m *Metrics) RecordSubmission(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordTransportFailure records an assistant transport failure
func (m *Metrics) RecordTransportFailure(class string) {
	m.TransportFailures.WithLabelValues(class).Inc()
}

// RecordMessage records an appended message
func (m *Metrics) RecordMessage(role string) {
	m.MessagesAppended.WithLabelValues(role).Inc()
}

// SetSessionsActive sets the number of sessions in the store
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// IncSessionsCreated increments the sessions created counter
func (m *Metrics) IncSessionsCreated() {
	m.SessionsCreated.Inc()
}

// IncSessionsDeleted increments the sessions deleted counter
func (m *Metrics) IncSessionsDeleted() {
	m.SessionsDeleted.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
