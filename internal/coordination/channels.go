package coordination

import "fmt"

// SupervisorChannel is the single named channel the supervisor subscribes
// to for WorkerHeartbeat, WorkerIdle, and TaskCreated notifications.
const SupervisorChannel = "supervisor"

// WorkerChannel returns the per-worker channel name a worker subscribes to
// for TaskDispatched notifications.
func WorkerChannel(id WorkerID) string {
	return fmt.Sprintf("worker:%s", id.String())
}
