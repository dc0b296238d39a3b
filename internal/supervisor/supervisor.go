// Package supervisor implements the supervisor loop: the singleton
// process that assigns tasks to workers, described in spec.md §4.5.
// Grounded on original_source/src/supervisor.rs, including its startup
// ordering and the analyzed-and-tolerated startup race.
package supervisor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/churro/scheduler/internal/coordination"
	"github.com/churro/scheduler/internal/notify"
	"github.com/churro/scheduler/internal/pending"
	"github.com/churro/scheduler/internal/roster"
	"github.com/churro/scheduler/internal/store"
)

// Metrics is the observability hook the supervisor calls on every
// branch of its main loop. A nil field is skipped, so tests can
// construct a Supervisor without wiring Prometheus.
type Metrics struct {
	DispatchAttempted func()
	DispatchWon       func()
	DispatchLost      func()
	RosterSize        func(int)
	IdleSetSize       func(int)
	QueueDepth        func(int)
	HeartbeatsSeen    func()
}

// Config holds the supervisor's timing knobs.
type Config struct {
	MaintenanceInterval time.Duration
	HeartbeatTimeout    time.Duration
}

// DefaultConfig matches spec.md §6's timing constants.
func DefaultConfig() Config {
	return Config{
		MaintenanceInterval: 1 * time.Second,
		HeartbeatTimeout:    3 * time.Second,
	}
}

// Supervisor owns the database, its notification subscription, the
// worker roster, and the pending-tasks queue.
type Supervisor struct {
	db       *store.Store
	listener *notify.SupervisorListener
	roster   *roster.Roster
	queue    *pending.Queue
	cfg      Config
	log      zerolog.Logger
	metrics  Metrics
	now      func() time.Time
}

// New wires a Supervisor out of already-connected dependencies. Callers
// are responsible for the startup ordering constraint (connect listener
// before opening the database pool) — see Run's doc comment and
// cmd/scheduler's `supervise` command, which performs that ordering.
func New(db *store.Store, listener *notify.SupervisorListener, cfg Config, log zerolog.Logger, metrics Metrics) *Supervisor {
	return &Supervisor{
		db:       db,
		listener: listener,
		roster:   roster.New(log),
		queue:    pending.New(),
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Run recovers the backlog and then enters the main loop until ctx is
// cancelled. Per spec.md §4.5, the caller must have already subscribed
// the notification listener BEFORE opening the database pool — Run only
// performs the backlog recovery (step 3) and the main loop (step 4); the
// listener-before-pool ordering (steps 1-2) happens in the caller because
// it spans two separately constructed dependencies.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.processBacklog(ctx); err != nil {
		return err
	}

	s.log.Info().Msg("ready")
	return s.mainLoop(ctx)
}

// processBacklog reads every pending task and pushes it into the
// pending-tasks queue, logging each recovered task — matching the
// original's "task was created while supervisor was shut down" line.
func (s *Supervisor) processBacklog(ctx context.Context) error {
	backlog, err := s.db.GetBacklog(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	for _, entry := range backlog {
		s.log.Info().Str("task_id", entry.ID.String()).Msg("task was created while supervisor was shut down")
		s.queue.Push(entry.ID, entry.ScheduledAt, now)
	}
	return nil
}

type notificationResult struct {
	notif coordination.SupervisorNotification
	err   error
}

// mainLoop multiplexes notification arrival, pending-task readiness, and
// the maintenance tick, exactly as spec.md §4.5 describes.
func (s *Supervisor) mainLoop(ctx context.Context) error {
	notifCh := make(chan notificationResult, 1)
	go s.pumpNotifications(ctx, notifCh)

	taskCh := make(chan coordination.TaskID, 1)
	taskErrCh := make(chan error, 1)
	go s.pumpPendingTasks(ctx, taskCh, taskErrCh)

	ticker := time.NewTicker(s.cfg.MaintenanceInterval)
	defer ticker.Stop()

	for {
		s.reportGauges()

		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-notifCh:
			if res.err != nil {
				return fmt.Errorf("supervisor notification stream: %w", res.err)
			}
			s.handleNotification(res.notif)
			go s.pumpNotifications(ctx, notifCh)

		case taskID := <-taskCh:
			if err := s.handleReadyTask(ctx, taskID); err != nil {
				return err
			}
			go s.pumpPendingTasks(ctx, taskCh, taskErrCh)

		case err := <-taskErrCh:
			return fmt.Errorf("supervisor pending queue: %w", err)

		case <-ticker.C:
			s.roster.GC(s.now(), s.cfg.HeartbeatTimeout)
		}
	}
}

func (s *Supervisor) pumpNotifications(ctx context.Context, out chan<- notificationResult) {
	notif, err := s.listener.Next()
	select {
	case out <- notificationResult{notif: notif, err: err}:
	case <-ctx.Done():
	}
}

func (s *Supervisor) pumpPendingTasks(ctx context.Context, out chan<- coordination.TaskID, errOut chan<- error) {
	id, err := s.queue.Next(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		select {
		case errOut <- err:
		case <-ctx.Done():
		}
		return
	}
	select {
	case out <- id:
	case <-ctx.Done():
	}
}

func (s *Supervisor) handleNotification(n coordination.SupervisorNotification) {
	now := s.now()
	switch n.Kind {
	case coordination.KindWorkerHeartbeat:
		if s.metrics.HeartbeatsSeen != nil {
			s.metrics.HeartbeatsSeen()
		}
		s.roster.Add(n.WorkerID, n.Status, now)
		s.queue.Resume()
	case coordination.KindWorkerIdle:
		s.roster.MarkAsIdle(n.WorkerID)
		s.queue.Resume()
	case coordination.KindTaskCreated:
		s.queue.Push(n.TaskID, n.ScheduledAt, now)
	}
}

// handleReadyTask implements the dispatch handshake from spec.md §4.5.
func (s *Supervisor) handleReadyTask(ctx context.Context, taskID coordination.TaskID) error {
	now := s.now()

	worker, ok := s.roster.ChooseIdling()
	if !ok {
		s.queue.Push(taskID, nil, now)
		s.queue.Pause()
		return nil
	}

	if s.metrics.DispatchAttempted != nil {
		s.metrics.DispatchAttempted()
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}

	dispatched, err := s.db.DispatchTask(ctx, tx, taskID, worker, now)
	if err != nil {
		tx.Rollback()
		return err
	}

	if !dispatched {
		// Not an error: the task may have been deleted, or observed
		// twice due to the startup race analyzed in spec.md §4.5 (the
		// backlog scan and a buffered TaskCreated notification both
		// delivering the same task). Roll back and move on without
		// re-enqueuing. The chosen worker stays out of the idle-set
		// until a WorkerIdle notification re-adds it; its heartbeats do
		// not (roster.Add reads status only on first observation), and
		// this loop never re-adds it itself.
		s.log.Debug().Str("task_id", taskID.String()).Str("worker_id", worker.String()).Msg("dispatch affected no rows")
		if err := tx.Rollback(); err != nil {
			return err
		}
		if s.metrics.DispatchLost != nil {
			s.metrics.DispatchLost()
		}
		return nil
	}

	if err := s.db.Notify(ctx, tx, coordination.WorkerChannel(worker), coordination.NewTaskDispatched(taskID)); err != nil {
		tx.Rollback()
		return err
	}

	if err := commitTx(tx); err != nil {
		return err
	}

	if s.metrics.DispatchWon != nil {
		s.metrics.DispatchWon()
	}
	return nil
}

func commitTx(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit dispatch: %v", coordination.ErrConnection, err)
	}
	return nil
}

func (s *Supervisor) reportGauges() {
	if s.metrics.RosterSize != nil {
		s.metrics.RosterSize(s.roster.Size())
	}
	if s.metrics.IdleSetSize != nil {
		s.metrics.IdleSetSize(s.roster.IdleCount())
	}
	if s.metrics.QueueDepth != nil {
		s.metrics.QueueDepth(s.queue.Len())
	}
}
