// Package store is the persistence layer: it owns all SQL and schema
// knowledge, exposing typed operations over tasks and workers plus a
// notify primitive that publishes within the caller's transaction. Built
// directly on database/sql + github.com/lib/pq rather than an ORM,
// following the original program's direct-sqlx-query style.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/churro/scheduler/internal/coordination"
)

// Store wraps a *sql.DB and implements every operation in spec.md §4.1.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres using dsn and verifies the connection is
// live. acquireTimeout bounds the initial ping, matching
// DB_ACQUIRE_TIMEOUT from spec.md §6.
func Open(dsn string, acquireTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", coordination.ErrConnection, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", coordination.ErrConnection, err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying pool, e.g. for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a transaction used for the atomic create+notify and
// dispatch+notify sequences required by spec.md §4.1.
func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %v", coordination.ErrConnection, err)
	}
	return tx, nil
}

// CreateWorker upserts a worker row, setting last_heard_at to now on both
// insert and conflict.
func (s *Store) CreateWorker(ctx context.Context, id coordination.WorkerID, now time.Time) error {
	const q = `
		insert into workers (id, last_heard_at) values ($1, $2)
		on conflict (id) do update set last_heard_at = $2`
	if _, err := s.db.ExecContext(ctx, q, id, now); err != nil {
		return fmt.Errorf("%w: create worker: %v", coordination.ErrConnection, err)
	}
	return nil
}

// UpdateWorker sets last_heard_at; a no-op if the row is missing.
func (s *Store) UpdateWorker(ctx context.Context, id coordination.WorkerID, now time.Time) error {
	const q = `update workers set last_heard_at = $2 where id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, now); err != nil {
		return fmt.Errorf("%w: update worker: %v", coordination.ErrConnection, err)
	}
	return nil
}

// GetWorkerLastHeardAt is a read helper used by tests.
func (s *Store) GetWorkerLastHeardAt(ctx context.Context, id coordination.WorkerID) (time.Time, error) {
	const q = `select last_heard_at from workers where id = $1`
	var t time.Time
	err := s.db.QueryRowContext(ctx, q, id).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, coordination.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: get worker: %v", coordination.ErrConnection, err)
	}
	return t, nil
}

// ListWorkers returns every persisted worker row, used by the read-only
// admin surface (spec_full.md §4.9) since the supervisor's in-memory
// roster lives in a different process.
func (s *Store) ListWorkers(ctx context.Context) ([]coordination.Worker, error) {
	const q = `select id, last_heard_at from workers order by id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: list workers: %v", coordination.ErrConnection, err)
	}
	defer rows.Close()

	var out []coordination.Worker
	for rows.Next() {
		var w coordination.Worker
		if err := rows.Scan(&w.ID, &w.LastHeardAt); err != nil {
			return nil, fmt.Errorf("%w: scan worker: %v", coordination.ErrConnection, err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate workers: %v", coordination.ErrConnection, err)
	}
	return out, nil
}

// CreateTask inserts a fresh task row with a generated UUIDv4 id, status
// pending, worker_id null, updated_at = created_at. Within tx so the
// caller can notify TaskCreated atomically.
func (s *Store) CreateTask(ctx context.Context, tx *sql.Tx, def json.RawMessage, createdAt time.Time, scheduledAt *time.Time) (coordination.TaskID, error) {
	id := coordination.NewTaskID()
	const q = `
		insert into tasks (id, def, worker_id, status, created_at, updated_at, scheduled_at)
		values ($1, $2, null, 'pending', $3, $3, $4)`
	if _, err := tx.ExecContext(ctx, q, id, def, createdAt, scheduledAt); err != nil {
		return coordination.TaskID{}, fmt.Errorf("%w: create task: %v", coordination.ErrConnection, err)
	}
	return id, nil
}

// DispatchTask conditionally transitions pending -> dispatched, setting
// worker_id. Returns false (not an error) if the row was not in pending —
// the database itself arbitrates the double-dispatch race.
func (s *Store) DispatchTask(ctx context.Context, tx *sql.Tx, id coordination.TaskID, worker coordination.WorkerID, now time.Time) (bool, error) {
	const q = `
		update tasks set worker_id = $2, status = 'dispatched', updated_at = $3
		where id = $1 and status = 'pending'`
	res, err := tx.ExecContext(ctx, q, id, worker, now)
	if err != nil {
		return false, fmt.Errorf("%w: dispatch task: %v", coordination.ErrConnection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: dispatch task rows affected: %v", coordination.ErrConnection, err)
	}
	return n == 1, nil
}

// BeginTask conditionally transitions dispatched -> running and returns
// the task def. Returns ErrNotFound if the row was not dispatched.
func (s *Store) BeginTask(ctx context.Context, id coordination.TaskID, now time.Time) (json.RawMessage, error) {
	const q = `
		update tasks set status = 'running', updated_at = $2
		where id = $1 and status = 'dispatched'
		returning def`
	var def json.RawMessage
	err := s.db.QueryRowContext(ctx, q, id, now).Scan(&def)
	if err == sql.ErrNoRows {
		return nil, coordination.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: begin task: %v", coordination.ErrConnection, err)
	}
	return def, nil
}

// CompleteTask conditionally transitions {running, interrupted} ->
// succeeded/failed. A no-op (silent, not an error) if the row is in
// neither source status.
func (s *Store) CompleteTask(ctx context.Context, id coordination.TaskID, succeeded bool, now time.Time) error {
	target := "failed"
	if succeeded {
		target = "succeeded"
	}
	const q = `
		update tasks set status = $2, updated_at = $3
		where id = $1 and status in ('running', 'interrupted')`
	if _, err := s.db.ExecContext(ctx, q, id, target, now); err != nil {
		return fmt.Errorf("%w: complete task: %v", coordination.ErrConnection, err)
	}
	return nil
}

// DeleteTask hard-deletes a task row. Soft deletion is an explicit
// non-goal (spec.md §1).
func (s *Store) DeleteTask(ctx context.Context, id coordination.TaskID) error {
	const q = `delete from tasks where id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("%w: delete task: %v", coordination.ErrConnection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete task rows affected: %v", coordination.ErrConnection, err)
	}
	if n == 0 {
		return coordination.ErrNotFound
	}
	return nil
}

// FindTask reads a single task row by id.
func (s *Store) FindTask(ctx context.Context, id coordination.TaskID) (coordination.Task, error) {
	const q = `
		select id, def, worker_id, status, created_at, updated_at, scheduled_at
		from tasks where id = $1`
	return scanTask(s.db.QueryRowContext(ctx, q, id))
}

// FindTasks reads task rows, optionally filtered by status.
func (s *Store) FindTasks(ctx context.Context, status *coordination.TaskStatus) ([]coordination.Task, error) {
	var rows *sql.Rows
	var err error
	if status != nil {
		const q = `
			select id, def, worker_id, status, created_at, updated_at, scheduled_at
			from tasks where status = $1 order by created_at`
		rows, err = s.db.QueryContext(ctx, q, status.String())
	} else {
		const q = `
			select id, def, worker_id, status, created_at, updated_at, scheduled_at
			from tasks order by created_at`
		rows, err = s.db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find tasks: %v", coordination.ErrConnection, err)
	}
	defer rows.Close()

	var out []coordination.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate tasks: %v", coordination.ErrConnection, err)
	}
	return out, nil
}

// BacklogEntry is a (id, scheduled_at) pair returned by GetBacklog, used
// to rebuild the pending-tasks queue on supervisor restart.
type BacklogEntry struct {
	ID          coordination.TaskID
	ScheduledAt *time.Time
}

// GetBacklog reads every pending task's (id, scheduled_at), used once at
// supervisor startup to rebuild the in-memory pending queue.
func (s *Store) GetBacklog(ctx context.Context) ([]BacklogEntry, error) {
	const q = `select id, scheduled_at from tasks where status = 'pending'`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: get backlog: %v", coordination.ErrConnection, err)
	}
	defer rows.Close()

	var out []BacklogEntry
	for rows.Next() {
		var e BacklogEntry
		if err := rows.Scan(&e.ID, &e.ScheduledAt); err != nil {
			return nil, fmt.Errorf("%w: scan backlog: %v", coordination.ErrConnection, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate backlog: %v", coordination.ErrConnection, err)
	}
	return out, nil
}

// Notify publishes payload as JSON on channel within tx, so a subscriber
// never observes a notification for a not-yet-committed row.
func (s *Store) Notify(ctx context.Context, tx *sql.Tx, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal notify payload: %v", coordination.ErrDecode, err)
	}
	const q = `select pg_notify($1, $2::text)`
	if _, err := tx.ExecContext(ctx, q, channel, string(data)); err != nil {
		return fmt.Errorf("%w: notify: %v", coordination.ErrConnection, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (coordination.Task, error) {
	t, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return coordination.Task{}, coordination.ErrNotFound
	}
	return t, err
}

func scanTaskRow(row rowScanner) (coordination.Task, error) {
	var t coordination.Task
	var workerID sql.NullString
	if err := row.Scan(&t.ID, &t.Def, &workerID, &t.Status, &t.CreatedAt, &t.UpdatedAt, &t.ScheduledAt); err != nil {
		if err == sql.ErrNoRows {
			return coordination.Task{}, err
		}
		return coordination.Task{}, fmt.Errorf("%w: scan task: %v", coordination.ErrConnection, err)
	}
	if workerID.Valid {
		id, err := coordination.ParseWorkerID(workerID.String)
		if err != nil {
			return coordination.Task{}, fmt.Errorf("%w: parse worker id: %v", coordination.ErrDecode, err)
		}
		t.WorkerID = &id
	}
	return t, nil
}
