package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and
// records nothing, so pool components can run uninstrumented in tests.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Pool metrics
	SandboxesLive   prometheus.Gauge
	LaunchesTotal   *prometheus.CounterVec
	SandboxesReaped prometheus.Counter

	// Task metrics
	TasksTotal   *prometheus.CounterVec
	TaskDuration prometheus.Histogram
	QueueDepth   prometheus.Gauge
	TasksRunning prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientpilot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clientpilot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SandboxesLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "clientpilot_sandboxes_live",
				Help: "Number of live sandboxes counted against the pool ceiling",
			},
		),
		LaunchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientpilot_sandbox_launches_total",
				Help: "Sandbox launch attempts by outcome",
			},
			[]string{"status"},
		),
		SandboxesReaped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "clientpilot_sandboxes_reaped_total",
				Help: "Sandboxes destroyed by the reaper",
			},
		),

		TasksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clientpilot_tasks_total",
				Help: "Dispatched tasks by outcome",
			},
			[]string{"status"},
		),
		TaskDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clientpilot_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		QueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "clientpilot_queue_depth",
				Help: "Tasks waiting for admission",
			},
		),
		TasksRunning: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "clientpilot_tasks_running",
				Help: "Tasks currently executing",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "clientpilot_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric.
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLaunch records a sandbox launch attempt ("ok", "exhausted", "failed").
func (m *Metrics) RecordLaunch(status string) {
	if m == nil {
		return
	}
	m.LaunchesTotal.WithLabelValues(status).Inc()
}

// SetSandboxesLive sets the live sandbox gauge.
func (m *Metrics) SetSandboxesLive(count int) {
	if m == nil {
		return
	}
	m.SandboxesLive.Set(float64(count))
}

// AddSandboxesReaped adds to the reaped sandbox counter.
func (m *Metrics) AddSandboxesReaped(count int) {
	if m == nil {
		return
	}
	m.SandboxesReaped.Add(float64(count))
}

// RecordTask records a task settlement ("ok", "timeout", "failed").
func (m *Metrics) RecordTask(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(status).Inc()
	m.TaskDuration.Observe(duration.Seconds())
}

// SetQueueDepth sets the admission queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// SetTasksRunning sets the running tasks gauge.
func (m *Metrics) SetTasksRunning(count int) {
	if m == nil {
		return
	}
	m.TasksRunning.Set(float64(count))
}
