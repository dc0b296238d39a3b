// Package notify is the notification transport: a long-lived subscription
// to one or more Postgres channels, backed by github.com/lib/pq's
// LISTEN/NOTIFY listener, yielding a stream of decoded typed messages.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/churro/scheduler/internal/coordination"
)

// Listener wraps a pq.Listener subscribed to one channel. Supervisor and
// worker each own one, subscribed to "supervisor" and "worker:{id}"
// respectively.
type Listener struct {
	inner   *pq.Listener
	channel string
	log     zerolog.Logger
}

// Connect opens a new listener connection and subscribes to channel.
// Connecting and listening happen before the caller opens its general DB
// pool — see spec.md §4.5/§4.6 on subscribe-before-open ordering.
func Connect(dsn, channel string, log zerolog.Logger) (*Listener, error) {
	problems := make(chan error, 1)
	eventCallback := func(ev pq.ListenerEventType, err error) {
		if ev == pq.ListenerEventConnectionAttemptFailed {
			select {
			case problems <- err:
			default:
			}
		}
	}

	inner := pq.NewListener(dsn, 1*time.Second, 30*time.Second, eventCallback)
	if err := inner.Listen(channel); err != nil {
		inner.Close()
		return nil, fmt.Errorf("%w: listen %s: %v", coordination.ErrConnection, channel, err)
	}

	select {
	case err := <-problems:
		inner.Close()
		return nil, fmt.Errorf("%w: connect: %v", coordination.ErrConnection, err)
	default:
	}

	return &Listener{inner: inner, channel: channel, log: log}, nil
}

// Close tears down the underlying connection.
func (l *Listener) Close() error {
	return l.inner.Close()
}

// next blocks until a raw notification payload arrives, decoding it with
// decode. A nil payload from pq (emitted on transparent reconnects) is a
// liveness event, not a message, and is skipped rather than surfaced as
// ErrConnectionLost — only a closed listener is fatal.
func next[T any](l *Listener, decode func([]byte) (T, error)) (T, error) {
	var zero T
	for {
		notif, ok := <-l.inner.Notify
		if !ok {
			return zero, coordination.ErrConnectionLost
		}
		if notif == nil {
			// pq signals a reconnect with a nil *pq.Notification; no
			// payload was lost because Postgres redelivers nothing it
			// didn't send, but re-subscribing is necessary after the
			// underlying TCP connection was replaced.
			if err := l.inner.Listen(l.channel); err != nil {
				l.log.Warn().Err(err).Str("channel", l.channel).Msg("re-listen after reconnect failed")
			}
			continue
		}
		l.log.Debug().Str("channel", l.channel).Str("payload", notif.Extra).Msg("received notification")
		val, err := decode([]byte(notif.Extra))
		if err != nil {
			return zero, fmt.Errorf("%w: %v", coordination.ErrDecode, err)
		}
		return val, nil
	}
}

// SupervisorListener subscribes to the single "supervisor" channel.
type SupervisorListener struct {
	*Listener
}

// ConnectSupervisor opens the supervisor's notification subscription.
func ConnectSupervisor(dsn string, log zerolog.Logger) (*SupervisorListener, error) {
	l, err := Connect(dsn, coordination.SupervisorChannel, log)
	if err != nil {
		return nil, err
	}
	return &SupervisorListener{Listener: l}, nil
}

// Next blocks for the next decoded SupervisorNotification.
func (l *SupervisorListener) Next() (coordination.SupervisorNotification, error) {
	return next(l.Listener, func(data []byte) (coordination.SupervisorNotification, error) {
		var n coordination.SupervisorNotification
		err := json.Unmarshal(data, &n)
		return n, err
	})
}

// WorkerListener subscribes to a single worker's "worker:{id}" channel.
type WorkerListener struct {
	*Listener
}

// ConnectWorker opens a worker's per-worker notification subscription.
func ConnectWorker(dsn string, id coordination.WorkerID, log zerolog.Logger) (*WorkerListener, error) {
	l, err := Connect(dsn, coordination.WorkerChannel(id), log)
	if err != nil {
		return nil, err
	}
	return &WorkerListener{Listener: l}, nil
}

// Next blocks for the next decoded WorkerNotification.
func (l *WorkerListener) Next() (coordination.WorkerNotification, error) {
	return next(l.Listener, func(data []byte) (coordination.WorkerNotification, error) {
		var n coordination.WorkerNotification
		err := json.Unmarshal(data, &n)
		return n, err
	})
}
