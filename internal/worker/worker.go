// Package worker implements the worker loop described in spec.md §4.6:
// a process that subscribes to its own notification channel, executes
// dispatched tasks one at a time, and runs a watchdog that heartbeats the
// supervisor. Grounded on original_source/src/worker.rs and
// original_source/src/worker/watchdog.rs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/churro/scheduler/internal/coordination"
	"github.com/churro/scheduler/internal/notify"
	"github.com/churro/scheduler/internal/store"
	"github.com/churro/scheduler/internal/taskdef"
)

// Metrics is the observability hook a worker calls on every processed
// task. A nil field is skipped.
type Metrics struct {
	TaskStarted   func()
	TaskSucceeded func()
	TaskFailed    func()
}

// Config holds the worker's timing knobs.
type Config struct {
	HeartbeatInterval time.Duration
}

// DefaultConfig matches spec.md §6's timing constants.
func DefaultConfig() Config {
	return Config{HeartbeatInterval: 1 * time.Second}
}

// Worker owns one worker identity: its database handle, its per-worker
// notification subscription, its busy/idle flag, and its watchdog.
type Worker struct {
	id       coordination.WorkerID
	db       *store.Store
	listener *notify.WorkerListener
	status   *coordination.AtomicWorkerStatus
	cfg      Config
	log      zerolog.Logger
	metrics  Metrics
}

// New wires a Worker out of already-connected dependencies. As with the
// supervisor, callers must connect listener before opening db — see
// spec.md §4.6.
func New(id coordination.WorkerID, db *store.Store, listener *notify.WorkerListener, cfg Config, log zerolog.Logger, metrics Metrics) *Worker {
	return &Worker{
		id:       id,
		db:       db,
		listener: listener,
		status:   coordination.NewAtomicWorkerStatus(),
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
	}
}

// Run starts the watchdog and then processes dispatched tasks until ctx
// is cancelled or the watchdog dies, whichever comes first.
func (w *Worker) Run(ctx context.Context) error {
	wd := &watchdog{id: w.id, status: w.status, db: w.db, interval: w.cfg.HeartbeatInterval, log: w.log}
	died, err := wd.spawn(ctx)
	if err != nil {
		return err
	}

	notifCh := make(chan notifResult, 1)
	go w.pumpNotifications(ctx, notifCh)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-died:
			return fmt.Errorf("%w", coordination.ErrWatchdogDied)

		case res := <-notifCh:
			if res.err != nil {
				return fmt.Errorf("worker notification stream: %w", res.err)
			}
			switch res.notif.Kind {
			case coordination.KindTaskDispatched:
				if err := w.processTask(ctx, res.notif.TaskID); err != nil {
					return fmt.Errorf("couldn't process task %s: %w", res.notif.TaskID, err)
				}
			}
			go w.pumpNotifications(ctx, notifCh)
		}
	}
}

type notifResult struct {
	notif coordination.WorkerNotification
	err   error
}

func (w *Worker) pumpNotifications(ctx context.Context, out chan<- notifResult) {
	n, err := w.listener.Next()
	select {
	case out <- notifResult{notif: n, err: err}:
	case <-ctx.Done():
	}
}

// processTask implements the begin -> run -> complete -> idle -> notify
// handshake from spec.md §4.6. Errors returned by the task body itself
// are never propagated past this function: they become a `failed`
// transition, matching spec.md §7's task-run error class.
func (w *Worker) processTask(ctx context.Context, id coordination.TaskID) error {
	w.status.Store(coordination.WorkerBusy)

	w.log.Info().Str("task_id", id.String()).Msg("starting task")

	raw, err := w.db.BeginTask(ctx, id, time.Now())
	if err != nil {
		return err
	}

	var def taskdef.Def
	if err := json.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("%w: %v", coordination.ErrDecode, err)
	}

	runErr := def.Run(ctx, taskdef.Context{TaskID: id, Logger: w.log})
	succeeded := runErr == nil
	if succeeded {
		w.log.Info().Str("task_id", id.String()).Msg("task succeeded")
		if w.metrics.TaskSucceeded != nil {
			w.metrics.TaskSucceeded()
		}
	} else {
		w.log.Warn().Str("task_id", id.String()).Err(runErr).Msg("task failed")
		if w.metrics.TaskFailed != nil {
			w.metrics.TaskFailed()
		}
	}
	if w.metrics.TaskStarted != nil {
		w.metrics.TaskStarted()
	}

	if err := w.db.CompleteTask(ctx, id, succeeded, time.Now()); err != nil {
		return err
	}

	w.status.Store(coordination.WorkerIdle)

	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	notif := coordination.NewWorkerIdleNotification(w.id)
	if err := w.db.Notify(ctx, tx, coordination.SupervisorChannel, notif); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
