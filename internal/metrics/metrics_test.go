package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, DispatchAttempts)
	assert.NotNil(t, DispatchWins)
	assert.NotNil(t, DispatchLosses)
	assert.NotNil(t, RosterSize)
	assert.NotNil(t, IdleWorkers)
	assert.NotNil(t, PendingQueueDepth)
	assert.NotNil(t, HeartbeatsReceived)
	assert.NotNil(t, WatchdogDeaths)
	assert.NotNil(t, TasksStarted)
	assert.NotNil(t, TasksSucceeded)
	assert.NotNil(t, TasksFailed)
	assert.NotNil(t, DecodeErrors)
	assert.NotNil(t, HTTPRequestDuration)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, WebSocketConnections)
	assert.NotNil(t, WebSocketMessages)
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestDuration.Reset()
	HTTPRequestsTotal.Reset()

	assert.NotPanics(t, func() {
		RecordHTTPRequest("GET", "/api/v1/tasks", "200", 0.05)
		RecordHTTPRequest("POST", "/api/v1/tasks", "201", 0.1)
		RecordHTTPRequest("GET", "/api/v1/tasks/123", "404", 0.01)
	})
}

func TestSetWebSocketConnections(t *testing.T) {
	assert.NotPanics(t, func() {
		SetWebSocketConnections(0)
		SetWebSocketConnections(10)
		SetWebSocketConnections(5)
	})
}

func TestRecordWebSocketMessage(t *testing.T) {
	WebSocketMessages.Reset()

	assert.NotPanics(t, func() {
		RecordWebSocketMessage("task.created")
		RecordWebSocketMessage("task.succeeded")
		RecordWebSocketMessage("worker.heartbeat")
	})
}

func TestRecordDecodeError(t *testing.T) {
	DecodeErrors.Reset()

	assert.NotPanics(t, func() {
		RecordDecodeError("supervisor")
		RecordDecodeError("worker:11111111-1111-1111-1111-111111111111")
	})
}

func TestDispatchCounters(t *testing.T) {
	assert.NotPanics(t, func() {
		DispatchAttempts.Inc()
		DispatchWins.Inc()
		DispatchLosses.Inc()
		HeartbeatsReceived.Inc()
		WatchdogDeaths.Inc()
		TasksStarted.Inc()
		TasksSucceeded.Inc()
		TasksFailed.Inc()
	})
}

func TestGauges(t *testing.T) {
	assert.NotPanics(t, func() {
		RosterSize.Set(3)
		IdleWorkers.Set(1)
		PendingQueueDepth.Set(42)
	})
}
