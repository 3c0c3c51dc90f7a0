package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Extension lifecycle metrics
	ExtensionsInstalled prometheus.Counter
	ExtensionsRemoved   prometheus.Counter
	ExtensionsActive    prometheus.Gauge
	LoadsTotal          prometheus.Counter
	LoadErrors          *prometheus.CounterVec
	RetriesTotal        prometheus.Counter

	// Isolation session metrics
	SessionsActive  prometheus.Gauge
	SessionsByLevel *prometheus.GaugeVec
	SessionMemory   prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for the JSON stats API
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats API
type Snapshot struct {
	TotalRequests    int64
	TotalErrors      int64
	ActiveExtensions int64
	TotalLoads       int64
	TotalRetries     int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ExtensionsInstalled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_extensions_installed_total",
				Help: "Total number of extensions installed",
			},
		),
		ExtensionsRemoved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_extensions_removed_total",
				Help: "Total number of extensions removed",
			},
		),
		ExtensionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_extensions_active",
				Help: "Number of extensions currently loaded",
			},
		),
		LoadsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_extension_loads_total",
				Help: "Total number of successful extension loads",
			},
		),
		LoadErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_extension_load_errors_total",
				Help: "Total number of failed extension loads",
			},
			[]string{"kind"},
		),
		RetriesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_extension_retries_total",
				Help: "Total number of scheduled load retries",
			},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_sessions_active",
				Help: "Number of active isolation sessions",
			},
		),
		SessionsByLevel: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "backend_sessions_by_level",
				Help: "Isolation sessions partitioned by level",
			},
			[]string{"level"},
		),
		SessionMemory: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_session_memory_bytes",
				Help: "Total memory attributed to isolation sessions",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordInstall increments the installed counter
func (m *Metrics) RecordInstall() {
	m.ExtensionsInstalled.Inc()
}

// RecordRemove increments the removed counter
func (m *Metrics) RecordRemove() {
	m.ExtensionsRemoved.Inc()
}

// RecordLoad increments the successful loads counter
func (m *Metrics) RecordLoad() {
	m.LoadsTotal.Inc()
	m.mu.Lock()
	m.snapshot.TotalLoads++
	m.mu.Unlock()
}

// RecordLoadError increments the load error counter for a failure kind
func (m *Metrics) RecordLoadError(kind types.ErrorKind) {
	m.LoadErrors.WithLabelValues(string(kind)).Inc()
}

// RecordRetry increments the retry counter
func (m *Metrics) RecordRetry() {
	m.RetriesTotal.Inc()
	m.mu.Lock()
	m.snapshot.TotalRetries++
	m.mu.Unlock()
}

// SetActive sets the loaded-extensions gauge
func (m *Metrics) SetActive(count int) {
	m.ExtensionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveExtensions = int64(count)
	m.mu.Unlock()
}

// SetSessions updates the session gauges from a stats sample
func (m *Metrics) SetSessions(stats types.SessionStats) {
	m.SessionsActive.Set(float64(stats.ActiveSessions))
	m.SessionsByLevel.Reset()
	for level, count := range stats.ByLevel {
		m.SessionsByLevel.WithLabelValues(string(level)).Set(float64(count))
	}
	m.SessionMemory.Set(float64(stats.TotalMemory))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// GetSnapshot returns current values for the JSON stats API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
