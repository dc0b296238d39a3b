package coordination

import (
	"encoding/json"
	"time"
)

// Task is the persisted entity described in spec.md §3.
type Task struct {
	ID          TaskID
	Def         json.RawMessage
	WorkerID    *WorkerID
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ScheduledAt *time.Time
}

// Worker is the persisted entity described in spec.md §3.
type Worker struct {
	ID          WorkerID
	LastHeardAt time.Time
}
