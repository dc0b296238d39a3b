package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/churro/scheduler/internal/coordination"
	"github.com/churro/scheduler/internal/store"
)

// Died is sent on a watchdog's death channel exactly once, when the
// watchdog can no longer reach the database.
type Died struct{}

// watchdog registers id's worker row and then heartbeats it forever,
// publishing a worker-heartbeat notification on the supervisor channel
// each tick. Grounded on original_source/src/worker/watchdog.rs.
type watchdog struct {
	id       coordination.WorkerID
	status   *coordination.AtomicWorkerStatus
	db       *store.Store
	interval time.Duration
	log      zerolog.Logger
}

// spawn creates the worker's row and starts the heartbeat loop in a
// background goroutine, returning a channel that receives exactly once
// if the loop dies. The caller's select loop treats that as fatal.
func (w *watchdog) spawn(ctx context.Context) (<-chan Died, error) {
	w.log.Info().Str("worker_id", w.id.String()).Msg("initializing watchdog")

	// TODO: if the workers table already has an entry for this id with a
	// recent last_heard_at, bail out — most likely a duplicate worker id
	// was launched twice.
	if err := w.db.CreateWorker(ctx, w.id, time.Now()); err != nil {
		return nil, err
	}

	died := make(chan Died, 1)
	go w.run(ctx, died)
	return died, nil
}

func (w *watchdog) run(ctx context.Context, died chan<- Died) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.heartbeat(ctx); err != nil {
			w.log.Error().Err(err).Msg("watchdog heartbeat failed")
			died <- Died{}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ticker already skips missed ticks instead of bursting, matching
			// MissedTickBehavior::Skip in the original.
		}
	}
}

func (w *watchdog) heartbeat(ctx context.Context) error {
	now := time.Now()
	if err := w.db.UpdateWorker(ctx, w.id, now); err != nil {
		return err
	}

	tx, err := w.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	notif := coordination.NewWorkerHeartbeat(w.id, w.status.Load())
	if err := w.db.Notify(ctx, tx, coordination.SupervisorChannel, notif); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
