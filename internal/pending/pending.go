// Package pending implements the in-memory pending-tasks priority queue:
// a suspendable "next task to dispatch" source ordered by dispatch
// deadline, with pause/resume and peek-then-pop semantics. Translated
// from the original program's Future/Waker-based BinaryHeap
// (original_source/src/supervisor/tasks.rs) into Go's native
// container/heap + channel idiom — see DESIGN.md for why this component
// has no direct teacher precedent.
package pending

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/churro/scheduler/internal/coordination"
)

// entry is one element of the heap: a task id with an optional deadline.
// A nil deadline means "ready immediately" and sorts before any non-nil
// deadline.
type entry struct {
	id         coordination.TaskID
	deadline   *time.Time
	createdAt  time.Time
	index      int
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	switch {
	case a.deadline == nil && b.deadline == nil:
		// Both ready immediately: break ties by created_at, earliest
		// first, then by id (§9 decision).
		if a.createdAt.Equal(b.createdAt) {
			return idSortsFirst(a.id, b.id)
		}
		return a.createdAt.Before(b.createdAt)
	case a.deadline == nil:
		return true
	case b.deadline == nil:
		return false
	case a.deadline.Equal(*b.deadline):
		if a.createdAt.Equal(b.createdAt) {
			return idSortsFirst(a.id, b.id)
		}
		return a.createdAt.Before(b.createdAt)
	default:
		return a.deadline.Before(*b.deadline)
	}
}

// idSortsFirst breaks ties between entries whose deadline and created_at
// are both equal. There is no semantically meaningful order between
// unrelated task ids; any deterministic tiebreak satisfies spec.md §8
// property 6. This picks the larger id first, matching the effective
// direction of the original implementation's id-based tiebreak
// (original_source/src/supervisor/tasks.rs's Ord impl, which its own TODO
// comment calls "basically random").
func idSortsFirst(a, b coordination.TaskID) bool {
	return a.String() > b.String()
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue is the pending-tasks priority queue described in spec.md §4.3.
// All exported methods are safe for concurrent use, though the design
// intends a single consumer calling Next.
type Queue struct {
	mu     sync.Mutex
	heap   entryHeap
	paused bool
	wake   chan struct{} // buffered(1) dirty signal
	now    func() time.Time
}

// New returns an empty, unpaused queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1), now: time.Now}
}

// NewWithClock returns an empty, unpaused queue that uses now instead of
// time.Now to compute remaining deadlines — used by tests driving virtual
// time, mirroring the original implementation's tokio::time::pause/advance
// harness.
func NewWithClock(now func() time.Time) *Queue {
	return &Queue{wake: make(chan struct{}, 1), now: now}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Push inserts id into the queue. scheduledAt, if non-nil, is interpreted
// as an absolute time; the deadline is scheduledAt (non-positive delays
// from now mean "ready immediately", matching spec.md §4.3 — implemented
// here by storing nil when scheduledAt is at or before now).
func (q *Queue) Push(id coordination.TaskID, scheduledAt *time.Time, now time.Time) {
	q.mu.Lock()
	e := &entry{id: id, createdAt: now}
	if scheduledAt != nil && scheduledAt.After(now) {
		d := *scheduledAt
		e.deadline = &d
	}
	heap.Push(&q.heap, e)
	q.mu.Unlock()
	q.signal()
}

// Pause suspends Next indefinitely until the next Resume.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume lifts a pause and wakes any blocked Next call.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.signal()
}

// Next blocks until the head of the queue is ready (or the queue is
// empty and then gains a ready head), then pops and returns it. It
// implements peek-then-pop: if ctx is cancelled before the head is
// actually ready, the head is left intact for the next call. Returns
// ctx.Err() on cancellation.
func (q *Queue) Next(ctx context.Context) (coordination.TaskID, error) {
	for {
		wait, ready, ok := q.peekWait()
		if ok {
			return ready, nil
		}

		var timerC <-chan time.Time
		var timer *time.Timer
		if wait > 0 {
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return coordination.TaskID{}, ctx.Err()
		case <-q.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-timerC:
		}
	}
}

// peekWait inspects the head under lock. If the head is ready, it is
// popped and returned with ok=true. Otherwise it returns how long until
// the head becomes ready (0 if unknown/empty/paused, meaning "block until
// woken").
func (q *Queue) peekWait() (wait time.Duration, id coordination.TaskID, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.paused || len(q.heap) == 0 {
		return 0, coordination.TaskID{}, false
	}

	head := q.heap[0]
	if head.deadline == nil {
		popped := heap.Pop(&q.heap).(*entry)
		return 0, popped.id, true
	}

	remaining := head.deadline.Sub(q.now())
	if remaining <= 0 {
		popped := heap.Pop(&q.heap).(*entry)
		return 0, popped.id, true
	}
	return remaining, coordination.TaskID{}, false
}

// TryNext is a non-blocking poll: if paused, empty, or the head's
// deadline has not yet elapsed as of now, it returns (zero, false)
// without consuming the head (peek-then-pop). Otherwise it pops and
// returns the head with ok=true. This is the deterministic surface used
// by tests that drive virtual time directly, mirroring the original
// implementation's manual Future::poll harness.
func (q *Queue) TryNext(now time.Time) (coordination.TaskID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.paused || len(q.heap) == 0 {
		return coordination.TaskID{}, false
	}
	head := q.heap[0]
	if head.deadline == nil || !head.deadline.After(now) {
		popped := heap.Pop(&q.heap).(*entry)
		return popped.id, true
	}
	return coordination.TaskID{}, false
}

// Len reports the number of tasks currently queued, used by the
// observability surface (queue-depth metric).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
