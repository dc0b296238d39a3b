//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churro/scheduler/internal/api"
	"github.com/churro/scheduler/internal/api/handlers"
	"github.com/churro/scheduler/internal/config"
	"github.com/churro/scheduler/internal/events"
	"github.com/churro/scheduler/internal/logger"
	"github.com/churro/scheduler/internal/notify"
	"github.com/churro/scheduler/internal/store"
)

func init() {
	logger.Init("error", false)
}

// setupTestServer requires a reachable Postgres instance with the schema
// already applied (`scheduler init`); point SCHEDULER_TEST_DSN at it. No
// test applies the schema itself; internal/store's tests expect it too.
func setupTestServer(t *testing.T) (*api.Server, *store.Store, func()) {
	t.Helper()

	dsn := os.Getenv("SCHEDULER_TEST_DSN")
	if dsn == "" {
		t.Skip("SCHEDULER_TEST_DSN not set")
	}

	cfg := &config.Config{
		Database: config.DatabaseConfig{DSN: dsn, AcquireTimeout: 5 * time.Second},
		HTTP: config.HTTPConfig{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			RateLimitRPS: 1000,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	log := *logger.Get()
	listener, err := notify.ConnectSupervisor(dsn, log)
	require.NoError(t, err)

	s, err := store.Open(dsn, cfg.Database.AcquireTimeout)
	require.NoError(t, err)

	publisher := events.NewPostgresPubSub(listener, log)
	server := api.NewServer(cfg, s, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	server.Start(ctx)

	cleanup := func() {
		cancel()
		server.Stop()
		_, _ = s.DB().ExecContext(context.Background(), "truncate tasks, workers")
		_ = s.Close()
	}

	return server, s, cleanup
}

func TestTaskLifecycle_CreateAndGet(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	createReq := handlers.CreateTaskRequest{Def: json.RawMessage(`{"kind":"echo","message":"hi"}`)}
	body, _ := json.Marshal(createReq)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created handlers.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", created.Status)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+created.ID, nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var fetched handlers.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Status, fetched.Status)
}

func TestTaskLifecycle_Delete(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	createReq := handlers.CreateTaskRequest{Def: json.RawMessage(`{"kind":"echo","message":"bye"}`)}
	body, _ := json.Marshal(createReq)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created handlers.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/tasks/"+created.ID, nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+created.ID, nil)
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskLifecycle_ListByStatus(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		createReq := handlers.CreateTaskRequest{Def: json.RawMessage(`{"kind":"echo","message":"batch"}`)}
		body, _ := json.Marshal(createReq)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?status=pending", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var list handlers.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.GreaterOrEqual(t, list.Count, 3)
}

func TestTaskLifecycle_GetNotFound(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/00000000-0000-0000-0000-000000000000", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints_Health(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["database"])
}

func TestAdminEndpoints_ListWorkers(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/admin/workers", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "workers")
	assert.Contains(t, resp, "count")
}
