// Package nats provides reflux.Watcher implementations that read encoded
// actions from NATS core subjects and JetStream streams.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

// DefaultBuffer is the number of messages held between the NATS client and
// the watcher goroutine.
const DefaultBuffer = 64

// Watcher subscribes to a NATS subject. Every message is emitted as one
// action message.
type Watcher struct {
	conn    *nats.Conn
	subject string
	queue   string
	buffer  int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQueue joins a queue group so that each message is delivered to only
// one of the watchers sharing the group.
func WithQueue(group string) Option {
	return func(w *Watcher) {
		w.queue = group
	}
}

// WithBuffer sets the subscription buffer size.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.buffer = n
		}
	}
}

// New creates a Watcher for the given subject. Wildcards are allowed.
func New(conn *nats.Conn, subject string, opts ...Option) *Watcher {
	w := &Watcher{
		conn:    conn,
		subject: subject,
		buffer:  DefaultBuffer,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch subscribes to the subject and returns a channel that emits each
// message's data. The subscription is flushed to the server before Watch
// returns, so messages published afterwards are not missed.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	msgs := make(chan *nats.Msg, w.buffer)

	var (
		sub *nats.Subscription
		err error
	)
	if w.queue != "" {
		sub, err = w.conn.ChanQueueSubscribe(w.subject, w.queue, msgs)
	} else {
		sub, err = w.conn.ChanSubscribe(w.subject, msgs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", w.subject, err)
	}

	if err := w.conn.Flush(); err != nil {
		_ = sub.Unsubscribe() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to flush subscription: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer sub.Unsubscribe() //nolint:errcheck // best effort on shutdown

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				select {
				case out <- msg.Data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
