package coordination

import (
	"database/sql/driver"
	"fmt"
	"sync/atomic"
)

// TaskStatus is the task lifecycle state. The legal transition graph is:
//
//	pending -> dispatched -> running -> succeeded
//	                             |         ^
//	                             |-> failed
//	                             |-> interrupted -> succeeded/failed
//
// Next state comments on each variant describe its legal successors; no
// transition ever reaches a predecessor state.
type TaskStatus int

const (
	// TaskPending has no worker assigned yet. Next state: Dispatched.
	TaskPending TaskStatus = iota
	// TaskDispatched has a worker assigned but the worker has not yet
	// started executing it. Next state: Running.
	TaskDispatched
	// TaskRunning is being executed by its assigned worker. Next state:
	// Succeeded, Failed, or Interrupted.
	TaskRunning
	// TaskSucceeded is a terminal state.
	TaskSucceeded
	// TaskFailed is a terminal state.
	TaskFailed
	// TaskInterrupted means the assigned worker disappeared mid-run.
	// Reachable in the data model; nothing in this implementation
	// transitions a task into it automatically (see SPEC_FULL.md §9). Next
	// state: Succeeded or Failed.
	TaskInterrupted
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskDispatched:
		return "dispatched"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	case TaskInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// ParseTaskStatus parses the kebab-case/lower-case Postgres enum label.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch s {
	case "pending":
		return TaskPending, nil
	case "dispatched":
		return TaskDispatched, nil
	case "running":
		return TaskRunning, nil
	case "succeeded":
		return TaskSucceeded, nil
	case "failed":
		return TaskFailed, nil
	case "interrupted":
		return TaskInterrupted, nil
	default:
		return 0, fmt.Errorf("unknown task status %q", s)
	}
}

// IsTerminal reports whether s has no legal outgoing transition.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

var validTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:     {TaskDispatched},
	TaskDispatched:  {TaskRunning},
	TaskRunning:     {TaskSucceeded, TaskFailed, TaskInterrupted},
	TaskInterrupted: {TaskSucceeded, TaskFailed},
	TaskSucceeded:   {},
	TaskFailed:      {},
}

// CanTransitionTo reports whether a transition from s to target is legal
// per the graph in spec.md §3.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	for _, next := range validTaskTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s TaskStatus) Value() (driver.Value, error) {
	return s.String(), nil
}

func (s *TaskStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported scan type %T for task status", src)
	}
	parsed, err := ParseTaskStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// WorkerStatus is a worker's self-reported busy/idle state, carried on
// heartbeats and WorkerIdle notifications.
type WorkerStatus int

const (
	WorkerIdle WorkerStatus = iota
	WorkerBusy
)

func (s WorkerStatus) String() string {
	if s == WorkerBusy {
		return "busy"
	}
	return "idle"
}

// ParseWorkerStatus parses the kebab-case wire representation.
func ParseWorkerStatus(s string) (WorkerStatus, error) {
	switch s {
	case "idle":
		return WorkerIdle, nil
	case "busy":
		return WorkerBusy, nil
	default:
		return 0, fmt.Errorf("unknown worker status %q", s)
	}
}

func (s WorkerStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *WorkerStatus) UnmarshalJSON(data []byte) error {
	unquoted := string(data)
	if len(unquoted) >= 2 && unquoted[0] == '"' {
		unquoted = unquoted[1 : len(unquoted)-1]
	}
	parsed, err := ParseWorkerStatus(unquoted)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AtomicWorkerStatus is a sequentially-consistent busy/idle flag shared
// between a worker's main loop (writer) and its watchdog (reader). Go's
// sync/atomic operations are always sequentially consistent, matching the
// original implementation's explicit Ordering::SeqCst.
type AtomicWorkerStatus struct {
	busy atomic.Bool
}

// NewAtomicWorkerStatus returns a status initialized to idle.
func NewAtomicWorkerStatus() *AtomicWorkerStatus {
	return &AtomicWorkerStatus{}
}

func (a *AtomicWorkerStatus) Store(s WorkerStatus) {
	a.busy.Store(s == WorkerBusy)
}

func (a *AtomicWorkerStatus) Load() WorkerStatus {
	if a.busy.Load() {
		return WorkerBusy
	}
	return WorkerIdle
}
