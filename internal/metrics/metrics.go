// Package metrics exposes the Prometheus gauges/counters/histograms
// described in SPEC_FULL.md's DOMAIN STACK section, registered the same
// promauto way the teacher registers its Redis-queue metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch metrics (internal/supervisor)
	DispatchAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_dispatch_attempts_total",
			Help: "Total number of attempted task dispatches",
		},
	)

	DispatchWins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_dispatch_wins_total",
			Help: "Total number of task dispatches that won the pending -> dispatched race",
		},
	)

	DispatchLosses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_dispatch_losses_total",
			Help: "Total number of task dispatches that lost the pending -> dispatched race",
		},
	)

	// Roster metrics (internal/roster)
	RosterSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_roster_size",
			Help: "Current number of workers known to the supervisor",
		},
	)

	IdleWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_idle_workers",
			Help: "Current number of workers in the idle-set",
		},
	)

	// Pending-queue metrics (internal/pending)
	PendingQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_pending_queue_depth",
			Help: "Current number of tasks in the in-memory pending queue",
		},
	)

	// Heartbeat metrics (internal/worker, internal/supervisor)
	HeartbeatsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_heartbeats_received_total",
			Help: "Total number of worker heartbeats observed by the supervisor",
		},
	)

	WatchdogDeaths = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_watchdog_deaths_total",
			Help: "Total number of worker watchdog failures",
		},
	)

	// Task execution metrics (internal/worker)
	TasksStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_started_total",
			Help: "Total number of tasks started by this worker",
		},
	)

	TasksSucceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_succeeded_total",
			Help: "Total number of tasks this worker completed successfully",
		},
	)

	TasksFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_failed_total",
			Help: "Total number of tasks this worker completed with an error",
		},
	)

	// Notification transport metrics (internal/notify)
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_decode_errors_total",
			Help: "Total number of notification payloads that failed to decode",
		},
		[]string{"channel"},
	)

	// HTTP metrics (RecordHTTPRequest; the internal/api router does not call it)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WebSocket metrics (internal/api/websocket)
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WebSocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_websocket_messages_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)
)

// RecordHTTPRequest records an HTTP request's duration and outcome.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// SetWebSocketConnections sets the WebSocket connections gauge.
func SetWebSocketConnections(count float64) {
	WebSocketConnections.Set(count)
}

// RecordWebSocketMessage records a WebSocket message.
func RecordWebSocketMessage(msgType string) {
	WebSocketMessages.WithLabelValues(msgType).Inc()
}

// RecordDecodeError records a notification payload that failed to decode.
func RecordDecodeError(channel string) {
	DecodeErrors.WithLabelValues(channel).Inc()
}
