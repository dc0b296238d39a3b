// Package roster implements the supervisor's in-memory worker roster:
// id -> last_heard_at tracking plus a disjoint idle-set for random
// selection, and liveness garbage collection. Grounded directly on
// original_source/src/supervisor/workers.rs, including the
// first-observation status latch and the double-warning-on-empty
// behavior.
package roster

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/churro/scheduler/internal/coordination"
)

// Roster tracks known workers and their idle-set membership. All methods
// are safe for concurrent use, though the supervisor main loop is its
// only intended caller.
type Roster struct {
	mu      sync.Mutex
	workers map[coordination.WorkerID]time.Time
	idle    map[coordination.WorkerID]struct{}
	log     zerolog.Logger
}

// New returns an empty roster. Cluster membership is discovered solely
// through heartbeat messages — deliberately not by reading the workers
// table at startup, which original_source/src/supervisor.rs calls out as
// more fragile than letting the roster rebuild itself live.
func New(log zerolog.Logger) *Roster {
	return &Roster{
		workers: make(map[coordination.WorkerID]time.Time),
		idle:    make(map[coordination.WorkerID]struct{}),
		log:     log,
	}
}

// Add records an observation of id at now. On first observation it logs
// "worker joined the cluster" and adds id to the idle-set only if status
// is idle. On every subsequent observation it refreshes last_heard_at
// only — status is never re-read after the first observation, because a
// straggler heartbeat sent before a worker locally applies a dispatch may
// still report idle after the supervisor has already marked it busy; see
// spec.md §4.4 and §9.
func (r *Roster) Add(id coordination.WorkerID, status coordination.WorkerStatus, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, known := r.workers[id]
	r.workers[id] = now

	if !known {
		r.log.Info().Str("worker_id", id.String()).Msg("worker joined the cluster")
		if status == coordination.WorkerIdle {
			r.idle[id] = struct{}{}
		}
	}
}

// MarkAsIdle inserts id into the idle-set. A no-op if id is unknown or
// already idle.
func (r *Roster) MarkAsIdle(id coordination.WorkerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, known := r.workers[id]; !known {
		return
	}
	r.idle[id] = struct{}{}
}

// ChooseIdling removes and returns a uniformly random member of the
// idle-set. ok is false if the idle-set is empty.
func (r *Roster) ChooseIdling() (id coordination.WorkerID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.idle) == 0 {
		return coordination.WorkerID{}, false
	}

	// Collect then index with math/rand/v2 for a uniformly random pick,
	// mirroring rand::seq::IteratorRandom::choose over a BTreeSet
	// iterator in the original. Map iteration order alone is not a
	// uniform distribution guarantee, so it is not relied on here.
	candidates := make([]coordination.WorkerID, 0, len(r.idle))
	for candidate := range r.idle {
		candidates = append(candidates, candidate)
	}
	id = candidates[rand.IntN(len(candidates))]
	delete(r.idle, id)
	return id, true
}

// GC removes every worker whose last_heard_at is older than timeout as of
// now, from both the roster and the idle-set. If this empties a
// previously non-empty roster, it emits the original's two-line
// "all workers seem dead" warning.
func (r *Roster) GC(now time.Time, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hadWorkers := len(r.workers) > 0

	for id, lastHeard := range r.workers {
		if now.Sub(lastHeard) >= timeout {
			r.log.Warn().Str("worker_id", id.String()).Msg("worker timed out, removing from roster")
			delete(r.workers, id)
			delete(r.idle, id)
		}
	}

	if hadWorkers && len(r.workers) == 0 {
		r.log.Warn().Msg("aii caramba, *all* workers seem dead")
		r.log.Warn().Msg("tasks will not be dispatched until workers come back to life")
	}
}

// Size returns the number of known workers, used by the observability
// surface.
func (r *Roster) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// IdleCount returns the size of the idle-set, used by the observability
// surface.
func (r *Roster) IdleCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.idle)
}
