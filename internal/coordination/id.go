// Package coordination holds the value objects shared by the persistence
// layer, the notification protocol, and the supervisor/worker loops: task
// and worker identifiers, the task status state machine, worker status, and
// the sentinel error taxonomy.
package coordination

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// TaskID uniquely identifies a task row.
type TaskID uuid.UUID

// NewTaskID generates a fresh random task identifier.
func NewTaskID() TaskID {
	return TaskID(uuid.New())
}

// ParseTaskID parses a UUID string into a TaskID.
func ParseTaskID(s string) (TaskID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, fmt.Errorf("parse task id: %w", err)
	}
	return TaskID(id), nil
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

// Value implements driver.Valuer so TaskID can be used directly as a SQL
// query argument.
func (id TaskID) Value() (driver.Value, error) {
	return uuid.UUID(id).String(), nil
}

// Scan implements sql.Scanner.
func (id *TaskID) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return fmt.Errorf("scan task id: %w", err)
	}
	*id = TaskID(u)
	return nil
}

func (id TaskID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *TaskID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = TaskID(u)
	return nil
}

// WorkerID uniquely identifies a worker process, chosen by the operator at
// launch time (never generated internally).
type WorkerID uuid.UUID

// ParseWorkerID parses a UUID string into a WorkerID.
func ParseWorkerID(s string) (WorkerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return WorkerID{}, fmt.Errorf("parse worker id: %w", err)
	}
	return WorkerID(id), nil
}

func (id WorkerID) String() string {
	return uuid.UUID(id).String()
}

func (id WorkerID) Value() (driver.Value, error) {
	return uuid.UUID(id).String(), nil
}

func (id *WorkerID) Scan(src interface{}) error {
	u, err := scanUUID(src)
	if err != nil {
		return fmt.Errorf("scan worker id: %w", err)
	}
	*id = WorkerID(u)
	return nil
}

func (id WorkerID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *WorkerID) UnmarshalJSON(data []byte) error {
	var u uuid.UUID
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	*id = WorkerID(u)
	return nil
}

func scanUUID(src interface{}) (uuid.UUID, error) {
	switch v := src.(type) {
	case string:
		return uuid.Parse(v)
	case []byte:
		return uuid.ParseBytes(v)
	default:
		return uuid.UUID{}, fmt.Errorf("unsupported scan type %T", src)
	}
}
