// Package events defines the live-activity feed broadcast over the
// websocket hub: a domain Event envelope plus a Publisher interface any
// transport can implement. The Redis-backed transport from the teacher is
// replaced by a Postgres LISTEN/NOTIFY transport (postgres_pubsub.go),
// since the spec allows no event bus beside the database itself.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// EventType represents the type of event broadcast to websocket clients.
type EventType string

const (
	// Task events. PostgresPubSub derives only EventTaskCreated (from the
	// TaskCreated supervisor notification); nothing in this module
	// publishes the dispatched, succeeded or failed events.
	EventTaskCreated    EventType = "task.created"
	EventTaskDispatched EventType = "task.dispatched"
	EventTaskSucceeded  EventType = "task.succeeded"
	EventTaskFailed     EventType = "task.failed"

	// Worker events, derived from coordination.SupervisorNotification.
	EventWorkerHeartbeat EventType = "worker.heartbeat"
	EventWorkerIdle      EventType = "worker.idle"
)

// Event represents a system event.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent creates a new event.
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ToJSON serializes the event to JSON.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON deserializes an event from JSON.
func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Publisher defines the interface for event publishers.
type Publisher interface {
	Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error)
	SubscribeAll(ctx context.Context) (<-chan *Event, error)
	Close() error
}

// Subscriber represents an event subscriber.
type Subscriber interface {
	OnEvent(event *Event)
	EventTypes() []EventType
}

// TaskEventData creates event data for task events.
func TaskEventData(taskID string, workerID string, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"task_id": taskID,
	}
	if workerID != "" {
		data["worker_id"] = workerID
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// WorkerEventData creates event data for worker events.
func WorkerEventData(workerID, status string, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"worker_id": workerID,
		"status":    status,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// QueueDepthData creates event data for a queue-depth snapshot.
func QueueDepthData(depth int) map[string]interface{} {
	return map[string]interface{}{
		"depth": depth,
	}
}
