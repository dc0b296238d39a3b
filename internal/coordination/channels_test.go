package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupervisorChannel(t *testing.T) {
	assert.Equal(t, "supervisor", SupervisorChannel)
}

func TestWorkerChannel(t *testing.T) {
	id := WorkerID(NewTaskID())
	assert.Equal(t, "worker:"+id.String(), WorkerChannel(id))
}
