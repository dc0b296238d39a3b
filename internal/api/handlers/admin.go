package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/churro/scheduler/internal/coordination"
	"github.com/churro/scheduler/internal/logger"
	"github.com/churro/scheduler/internal/store"
)

// AdminHandler serves the read-only admin surface described in
// SPEC_FULL.md §4.9: worker roster and task status introspection, plus a
// health check. There is no mutating admin surface (pause/resume a worker,
// purge a queue, force-retry a task) because nothing in the database-owns-
// everything model gives an HTTP handler a safe way to perform those
// writes outside the supervisor's own predicated-update dispatch handshake.
type AdminHandler struct {
	store *store.Store
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(s *store.Store) *AdminHandler {
	return &AdminHandler{store: s}
}

// WorkerResponse is the wire shape for a worker row.
type WorkerResponse struct {
	ID          string    `json:"id"`
	LastHeardAt time.Time `json:"last_heard_at"`
}

// ListWorkers handles GET /admin/workers.
func (h *AdminHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.store.ListWorkers(r.Context())
	if err != nil {
		logger.Error().Err(err).Msg("failed to list workers")
		h.respondError(w, http.StatusInternalServerError, "failed to list workers")
		return
	}

	resp := make([]WorkerResponse, 0, len(workers))
	for _, wk := range workers {
		resp = append(resp, WorkerResponse{ID: wk.ID.String(), LastHeardAt: wk.LastHeardAt})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"workers": resp,
		"count":   len(resp),
	})
}

// ListTasks handles GET /admin/tasks?status=.
func (h *AdminHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var statusFilter *coordination.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := coordination.ParseTaskStatus(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		statusFilter = &s
	}

	tasks, err := h.store.FindTasks(r.Context(), statusFilter)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list tasks")
		h.respondError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, taskToResponse(t))
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": resp,
		"count": len(resp),
	})
}

// HealthCheck handles GET /admin/health.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"database": "connected",
	})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
