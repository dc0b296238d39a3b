package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminHandler_respondJSON(t *testing.T) {
	h := &AdminHandler{}

	w := httptest.NewRecorder()
	data := map[string]string{"status": "ok"}

	h.respondJSON(w, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

func TestAdminHandler_respondError(t *testing.T) {
	h := &AdminHandler{}

	w := httptest.NewRecorder()
	h.respondError(w, http.StatusNotFound, "worker not found")

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "Not Found", response["error"])
	assert.Equal(t, "worker not found", response["message"])
}

func TestAdminHandler_ListTasks_InvalidStatus(t *testing.T) {
	h := &AdminHandler{}

	req := httptest.NewRequest(http.MethodGet, "/admin/tasks?status=bogus", nil)
	w := httptest.NewRecorder()

	h.ListTasks(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "invalid status filter", response["message"])
}

func TestWorkerResponse_Struct(t *testing.T) {
	resp := WorkerResponse{ID: "worker-1"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded WorkerResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "worker-1", decoded.ID)
}
