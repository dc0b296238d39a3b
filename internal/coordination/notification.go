package coordination

import (
	"encoding/json"
	"fmt"
	"time"
)

// SupervisorNotificationKind discriminates the payloads published on the
// `supervisor` channel.
type SupervisorNotificationKind string

const (
	KindWorkerHeartbeat SupervisorNotificationKind = "worker-heartbeat"
	KindWorkerIdle      SupervisorNotificationKind = "worker-idle"
	KindTaskCreated     SupervisorNotificationKind = "task-created"
)

// SupervisorNotification is the tagged-union sum type received by the
// supervisor loop on its channel. Exactly one of the Worker*/Task* fields
// is meaningful, selected by Kind.
type SupervisorNotification struct {
	Kind SupervisorNotificationKind

	// WorkerHeartbeat / WorkerIdle
	WorkerID WorkerID
	Status   WorkerStatus // only set for WorkerHeartbeat

	// TaskCreated
	TaskID      TaskID
	ScheduledAt *time.Time
}

// NewWorkerHeartbeat builds a worker-heartbeat notification.
func NewWorkerHeartbeat(id WorkerID, status WorkerStatus) SupervisorNotification {
	return SupervisorNotification{Kind: KindWorkerHeartbeat, WorkerID: id, Status: status}
}

// NewWorkerIdleNotification builds a worker-idle notification.
func NewWorkerIdleNotification(id WorkerID) SupervisorNotification {
	return SupervisorNotification{Kind: KindWorkerIdle, WorkerID: id}
}

// NewTaskCreated builds a task-created notification.
func NewTaskCreated(id TaskID, scheduledAt *time.Time) SupervisorNotification {
	return SupervisorNotification{Kind: KindTaskCreated, TaskID: id, ScheduledAt: scheduledAt}
}

type supervisorNotificationWire struct {
	Ty          SupervisorNotificationKind `json:"ty"`
	ID          string                     `json:"id,omitempty"`
	Status      string                     `json:"status,omitempty"`
	ScheduledAt *time.Time                 `json:"scheduled_at,omitempty"`
}

func (n SupervisorNotification) MarshalJSON() ([]byte, error) {
	wire := supervisorNotificationWire{Ty: n.Kind}
	switch n.Kind {
	case KindWorkerHeartbeat:
		wire.ID = n.WorkerID.String()
		wire.Status = n.Status.String()
	case KindWorkerIdle:
		wire.ID = n.WorkerID.String()
	case KindTaskCreated:
		wire.ID = n.TaskID.String()
		wire.ScheduledAt = n.ScheduledAt
	default:
		return nil, fmt.Errorf("%w: unknown supervisor notification kind %q", ErrDecode, n.Kind)
	}
	return json.Marshal(wire)
}

func (n *SupervisorNotification) UnmarshalJSON(data []byte) error {
	var wire supervisorNotificationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch wire.Ty {
	case KindWorkerHeartbeat:
		id, err := ParseWorkerID(wire.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		status, err := ParseWorkerStatus(wire.Status)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		*n = NewWorkerHeartbeat(id, status)
	case KindWorkerIdle:
		id, err := ParseWorkerID(wire.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		*n = NewWorkerIdleNotification(id)
	case KindTaskCreated:
		id, err := ParseTaskID(wire.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		*n = NewTaskCreated(id, wire.ScheduledAt)
	default:
		return fmt.Errorf("%w: unknown supervisor notification kind %q", ErrDecode, wire.Ty)
	}
	return nil
}

// WorkerNotificationKind discriminates payloads published on a
// per-worker `worker:{uuid}` channel.
type WorkerNotificationKind string

const (
	KindTaskDispatched WorkerNotificationKind = "task-dispatched"
)

// WorkerNotification is the tagged-union sum type received by a worker
// loop on its per-worker channel.
type WorkerNotification struct {
	Kind   WorkerNotificationKind
	TaskID TaskID
}

// NewTaskDispatched builds a task-dispatched notification.
func NewTaskDispatched(id TaskID) WorkerNotification {
	return WorkerNotification{Kind: KindTaskDispatched, TaskID: id}
}

type workerNotificationWire struct {
	Ty WorkerNotificationKind `json:"ty"`
	ID string                 `json:"id,omitempty"`
}

func (n WorkerNotification) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindTaskDispatched:
		return json.Marshal(workerNotificationWire{Ty: n.Kind, ID: n.TaskID.String()})
	default:
		return nil, fmt.Errorf("%w: unknown worker notification kind %q", ErrDecode, n.Kind)
	}
}

func (n *WorkerNotification) UnmarshalJSON(data []byte) error {
	var wire workerNotificationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	switch wire.Ty {
	case KindTaskDispatched:
		id, err := ParseTaskID(wire.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		*n = NewTaskDispatched(id)
	default:
		return fmt.Errorf("%w: unknown worker notification kind %q", ErrDecode, wire.Ty)
	}
	return nil
}
