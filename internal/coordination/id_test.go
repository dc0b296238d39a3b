package coordination

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskID_ParseAndString(t *testing.T) {
	id := NewTaskID()
	parsed, err := ParseTaskID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestTaskID_ParseInvalid(t *testing.T) {
	_, err := ParseTaskID("not-a-uuid")
	assert.Error(t, err)
}

func TestTaskID_JSONRoundTrip(t *testing.T) {
	id := NewTaskID()
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded TaskID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestTaskID_Value(t *testing.T) {
	id := NewTaskID()
	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.String(), v)
}

func TestTaskID_Scan(t *testing.T) {
	id := NewTaskID()
	var scanned TaskID
	require.NoError(t, scanned.Scan(id.String()))
	assert.Equal(t, id, scanned)

	require.NoError(t, scanned.Scan([]byte(id.String())))
	assert.Equal(t, id, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestWorkerID_ParseAndString(t *testing.T) {
	id := WorkerID(NewTaskID())
	parsed, err := ParseWorkerID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestWorkerID_ParseInvalid(t *testing.T) {
	_, err := ParseWorkerID("not-a-uuid")
	assert.Error(t, err)
}

func TestWorkerID_JSONRoundTrip(t *testing.T) {
	id := WorkerID(NewTaskID())
	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded WorkerID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}
