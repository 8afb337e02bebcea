package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/homestead/backend/internal/infrastructure/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "homestead"

// Metrics is the Prometheus registry scraped on /metrics. All methods are
// safe on a nil *Metrics, so components can take it as optional.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	notifications    *prometheus.CounterVec
	gpsReadings      *prometheus.CounterVec
	automations      *prometheus.CounterVec
	sessionWrites    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	realtimeClients  prometheus.Gauge
	staleDeliveries  prometheus.Gauge
}

// NewMetrics creates a registry with Go runtime and process collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "notification", Name: "dispatches_total",
			Help: "Notification channel outcomes by event.",
		}, []string{"event", "channel", "outcome"}),
		gpsReadings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "gps_readings_total",
			Help: "GPS readings by outcome (accepted, out_of_order, rejected).",
		}, []string{"outcome"}),
		automations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "automation_triggers_total",
			Help: "Status changes made by GPS automation.",
		}, []string{"to_status"}),
		sessionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "persistence_total",
			Help: "Session store operations by outcome.",
		}, []string{"operation", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "integration", Name: "call_duration_seconds",
			Help:    "Third-party API latency.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "job_runs_total",
			Help: "Background job runs by task and status.",
		}, []string{"task", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "job_duration_seconds",
			Help:    "Background job run time.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"task"}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "realtime", Name: "clients",
			Help: "Connected websocket clients.",
		}),
		staleDeliveries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "delivery", Name: "stale_in_transit",
			Help: "In-transit deliveries without a recent GPS reading.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.notifications, m.gpsReadings, m.automations,
		m.sessionWrites, m.providerDuration,
		m.jobRuns, m.jobDuration,
		m.realtimeClients, m.staleDeliveries,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request. route is the gin route template.
func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// NotificationChannel records a channel outcome: sent, failed or skipped
func (m *Metrics) NotificationChannel(event, channel, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, channel, outcome).Inc()
}

// GPSReading records what happened to a location update
func (m *Metrics) GPSReading(outcome string) {
	if m == nil {
		return
	}
	m.gpsReadings.WithLabelValues(outcome).Inc()
}

// AutomationTriggered records a GPS-driven status change
func (m *Metrics) AutomationTriggered(toStatus string) {
	if m == nil {
		return
	}
	m.automations.WithLabelValues(toStatus).Inc()
}

// SessionPersistence records a session store operation
func (m *Metrics) SessionPersistence(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sessionWrites.WithLabelValues(operation, outcome).Inc()
}

// ProviderCall records a third-party API call
func (m *Metrics) ProviderCall(provider string, err error, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerDuration.WithLabelValues(provider, outcome).Observe(took.Seconds())
}

// ObserveJob implements scheduler.JobObserver
func (m *Metrics) ObserveJob(task string, status scheduler.JobStatus, took time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(task, string(status)).Inc()
	m.jobDuration.WithLabelValues(task).Observe(took.Seconds())
}

// SetRealtimeClients sets the connected websocket client count
func (m *Metrics) SetRealtimeClients(n int) {
	if m == nil {
		return
	}
	m.realtimeClients.Set(float64(n))
}

// SetStaleDeliveries sets the stale in-transit delivery count
func (m *Metrics) SetStaleDeliveries(n int) {
	if m == nil {
		return
	}
	m.staleDeliveries.Set(float64(n))
}

var _ scheduler.JobObserver = (*Metrics)(nil)
