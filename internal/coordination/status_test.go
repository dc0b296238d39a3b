package coordination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatus_StringAndParse(t *testing.T) {
	all := []TaskStatus{TaskPending, TaskDispatched, TaskRunning, TaskSucceeded, TaskFailed, TaskInterrupted}
	for _, s := range all {
		parsed, err := ParseTaskStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestParseTaskStatus_Unknown(t *testing.T) {
	_, err := ParseTaskStatus("bogus")
	assert.Error(t, err)
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.True(t, TaskSucceeded.IsTerminal())
	assert.True(t, TaskFailed.IsTerminal())
	assert.False(t, TaskPending.IsTerminal())
	assert.False(t, TaskDispatched.IsTerminal())
	assert.False(t, TaskRunning.IsTerminal())
	assert.False(t, TaskInterrupted.IsTerminal())
}

func TestTaskStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskPending, TaskDispatched, true},
		{TaskPending, TaskRunning, false},
		{TaskDispatched, TaskRunning, true},
		{TaskRunning, TaskSucceeded, true},
		{TaskRunning, TaskFailed, true},
		{TaskRunning, TaskInterrupted, true},
		{TaskInterrupted, TaskSucceeded, true},
		{TaskInterrupted, TaskFailed, true},
		{TaskInterrupted, TaskRunning, false},
		{TaskSucceeded, TaskFailed, false},
		{TaskFailed, TaskSucceeded, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTaskStatus_ValueAndScan(t *testing.T) {
	s := TaskDispatched
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "dispatched", v)

	var scanned TaskStatus
	require.NoError(t, scanned.Scan("dispatched"))
	assert.Equal(t, TaskDispatched, scanned)

	require.NoError(t, scanned.Scan([]byte("succeeded")))
	assert.Equal(t, TaskSucceeded, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestWorkerStatus_StringAndParse(t *testing.T) {
	for _, s := range []WorkerStatus{WorkerIdle, WorkerBusy} {
		parsed, err := ParseWorkerStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseWorkerStatus("bogus")
	assert.Error(t, err)
}

func TestWorkerStatus_JSON(t *testing.T) {
	data, err := WorkerBusy.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"busy"`, string(data))

	var s WorkerStatus
	require.NoError(t, s.UnmarshalJSON([]byte(`"idle"`)))
	assert.Equal(t, WorkerIdle, s)
}

func TestAtomicWorkerStatus(t *testing.T) {
	s := NewAtomicWorkerStatus()
	assert.Equal(t, WorkerIdle, s.Load())

	s.Store(WorkerBusy)
	assert.Equal(t, WorkerBusy, s.Load())

	s.Store(WorkerIdle)
	assert.Equal(t, WorkerIdle, s.Load())
}
