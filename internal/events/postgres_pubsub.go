package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/churro/scheduler/internal/coordination"
	"github.com/churro/scheduler/internal/notify"
)

// PostgresPubSub fans a notification listener out to any number of
// in-process subscriber channels. It replaces the teacher's Redis Pub/Sub
// transport: there is no event bus beside the database+lib/pq
// LISTEN/NOTIFY connection the rest of this program already uses, so the
// live activity feed rides the same rail — on its own dedicated
// subscription to the "supervisor" channel (Postgres delivers a NOTIFY to
// every LISTEN session independently, so this does not steal
// notifications from the supervisor's own listener).
type PostgresPubSub struct {
	listener *notify.SupervisorListener
	log      zerolog.Logger

	mu   sync.Mutex
	subs map[chan *Event]struct{}
}

// NewPostgresPubSub wraps a listener connected via its own call to
// notify.ConnectSupervisor, separate from the supervisor process's
// listener. The caller owns the listener's lifecycle beyond Close.
func NewPostgresPubSub(listener *notify.SupervisorListener, log zerolog.Logger) *PostgresPubSub {
	return &PostgresPubSub{
		listener: listener,
		log:      log,
		subs:     make(map[chan *Event]struct{}),
	}
}

// Run pumps notifications from the listener, translates them to Events,
// and fans them out to every subscriber until ctx is cancelled or the
// listener errors.
func (p *PostgresPubSub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		notif, err := p.listener.Next()
		if err != nil {
			return fmt.Errorf("events pubsub: %w", err)
		}
		p.fanOut(translate(notif))
	}
}

func translate(n coordination.SupervisorNotification) *Event {
	switch n.Kind {
	case coordination.KindWorkerHeartbeat:
		return NewEvent(EventWorkerHeartbeat, WorkerEventData(n.WorkerID.String(), n.Status.String(), nil))
	case coordination.KindWorkerIdle:
		return NewEvent(EventWorkerIdle, WorkerEventData(n.WorkerID.String(), "idle", nil))
	case coordination.KindTaskCreated:
		return NewEvent(EventTaskCreated, TaskEventData(n.TaskID.String(), "", nil))
	default:
		return nil
	}
}

func (p *PostgresPubSub) fanOut(event *Event) {
	if event == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- event:
		default:
			p.log.Warn().Str("event_type", string(event.Type)).Msg("subscriber channel full, dropping event")
		}
	}
}

// Subscribe returns a channel receiving only the requested event types.
func (p *PostgresPubSub) Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error) {
	wanted := make(map[EventType]bool, len(eventTypes))
	for _, t := range eventTypes {
		wanted[t] = true
	}
	return p.subscribe(ctx, func(e *Event) bool { return wanted[e.Type] })
}

// SubscribeAll returns a channel receiving every event.
func (p *PostgresPubSub) SubscribeAll(ctx context.Context) (<-chan *Event, error) {
	return p.subscribe(ctx, func(*Event) bool { return true })
}

func (p *PostgresPubSub) subscribe(ctx context.Context, keep func(*Event) bool) (<-chan *Event, error) {
	raw := make(chan *Event, 64)
	out := make(chan *Event, 64)

	p.mu.Lock()
	p.subs[raw] = struct{}{}
	p.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			p.mu.Lock()
			delete(p.subs, raw)
			p.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-raw:
				if !ok {
					return
				}
				if keep(e) {
					select {
					case out <- e:
					default:
					}
				}
			}
		}
	}()

	return out, nil
}

// Close tears down the underlying listener connection.
func (p *PostgresPubSub) Close() error {
	return p.listener.Close()
}
