package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/churro/scheduler/internal/coordination"
	"github.com/churro/scheduler/internal/logger"
	"github.com/churro/scheduler/internal/store"
)

// TaskHandler serves the task CRUD surface described in SPEC_FULL.md §6:
// every write goes through the store's atomic create+notify transaction
// rather than through an open queue client, so a task never becomes visible
// to a subscriber before its row is committed.
type TaskHandler struct {
	store *store.Store
	now   func() time.Time
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(s *store.Store) *TaskHandler {
	return &TaskHandler{store: s, now: time.Now}
}

// CreateTaskRequest is the wire shape for POST /api/v1/tasks.
type CreateTaskRequest struct {
	Def         json.RawMessage `json:"def"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
}

// TaskResponse is the wire shape returned for a task row.
type TaskResponse struct {
	ID          string          `json:"id"`
	Def         json.RawMessage `json:"def"`
	WorkerID    *string         `json:"worker_id,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ScheduledAt *time.Time      `json:"scheduled_at,omitempty"`
}

func taskToResponse(t coordination.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Def:         t.Def,
		Status:      t.Status.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ScheduledAt: t.ScheduledAt,
	}
	if t.WorkerID != nil {
		id := t.WorkerID.String()
		resp.WorkerID = &id
	}
	return resp
}

// Create handles POST /api/v1/tasks. The insert and the TaskCreated notify
// share one transaction, so the supervisor never observes a task row before
// it is durable.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Def) == 0 || string(req.Def) == "null" {
		h.respondError(w, http.StatusBadRequest, "def is required")
		return
	}

	ctx := r.Context()
	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to begin task create tx")
		h.respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	now := h.now().UTC()
	id, err := h.store.CreateTask(ctx, tx, req.Def, now, req.ScheduledAt)
	if err != nil {
		tx.Rollback()
		logger.Error().Err(err).Msg("failed to insert task")
		h.respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	notif := coordination.NewTaskCreated(id, req.ScheduledAt)
	if err := h.store.Notify(ctx, tx, coordination.SupervisorChannel, notif); err != nil {
		tx.Rollback()
		logger.Error().Err(err).Str("task_id", id.String()).Msg("failed to notify task created")
		h.respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	if err := tx.Commit(); err != nil {
		logger.Error().Err(err).Str("task_id", id.String()).Msg("failed to commit task create")
		h.respondError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	logger.Info().Str("task_id", id.String()).Msg("task created")

	t, err := h.store.FindTask(ctx, id)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "task created but could not be read back")
		return
	}
	h.respondJSON(w, http.StatusCreated, taskToResponse(t))
}

// Get handles GET /api/v1/tasks/{taskID}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseTaskID(w, r)
	if !ok {
		return
	}

	t, err := h.store.FindTask(r.Context(), id)
	if err != nil {
		h.respondStoreErr(w, id.String(), err, "failed to get task")
		return
	}
	h.respondJSON(w, http.StatusOK, taskToResponse(t))
}

// Delete handles DELETE /api/v1/tasks/{taskID}. Hard deletion is the only
// form of removal; soft-delete/archival is an explicit non-goal.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseTaskID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteTask(r.Context(), id); err != nil {
		h.respondStoreErr(w, id.String(), err, "failed to delete task")
		return
	}

	logger.Info().Str("task_id", id.String()).Msg("task deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ListResponse is the wire shape for GET /api/v1/tasks.
type ListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// List handles GET /api/v1/tasks, optionally filtered by ?status=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
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

	resp := ListResponse{Tasks: make([]TaskResponse, 0, len(tasks)), Count: len(tasks)}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(t))
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *TaskHandler) parseTaskID(w http.ResponseWriter, r *http.Request) (coordination.TaskID, bool) {
	raw := chi.URLParam(r, "taskID")
	if raw == "" {
		h.respondError(w, http.StatusBadRequest, "task ID is required")
		return coordination.TaskID{}, false
	}
	id, err := coordination.ParseTaskID(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid task ID")
		return coordination.TaskID{}, false
	}
	return id, true
}

func (h *TaskHandler) respondStoreErr(w http.ResponseWriter, taskID string, err error, msg string) {
	if errors.Is(err, coordination.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "task not found")
		return
	}
	logger.Error().Err(err).Str("task_id", taskID).Msg(msg)
	h.respondError(w, http.StatusInternalServerError, msg)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
