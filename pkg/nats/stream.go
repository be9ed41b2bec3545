package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamWatcher consumes a JetStream stream. Unlike core subjects, a stream
// retains messages, so a durable consumer resumes where it left off and
// nothing published while the watcher was down is lost.
//
// Each message is acknowledged once the feed has taken it, which makes
// delivery at-least-once: a message handed over just before a crash is
// delivered again on restart.
type StreamWatcher struct {
	js      jetstream.JetStream
	stream  string
	durable string
	subject string
	replay  bool
}

// StreamOption configures a StreamWatcher.
type StreamOption func(*StreamWatcher)

// WithDurable names the consumer so that its position survives restarts.
// Without a name the consumer is ephemeral.
func WithDurable(name string) StreamOption {
	return func(w *StreamWatcher) {
		w.durable = name
	}
}

// WithFilter restricts the consumer to subjects matching filter.
func WithFilter(filter string) StreamOption {
	return func(w *StreamWatcher) {
		w.subject = filter
	}
}

// WithReplay delivers every message the stream holds before new ones, so a
// fresh store can rebuild its state from the stream. A durable consumer that
// already exists keeps its recorded position.
func WithReplay() StreamOption {
	return func(w *StreamWatcher) {
		w.replay = true
	}
}

// NewStream creates a StreamWatcher for the named stream. The stream must
// already exist.
//
// Example:
//
//	js, _ := jetstream.New(nc)
//	src := nats.NewStream(js, "COUNTER", nats.WithDurable("counter-store"))
func NewStream(js jetstream.JetStream, stream string, opts ...StreamOption) *StreamWatcher {
	w := &StreamWatcher{
		js:     js,
		stream: stream,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch creates or resumes the consumer and returns a channel that emits
// each message's data in stream order.
func (w *StreamWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	deliver := jetstream.DeliverNewPolicy
	if w.replay {
		deliver = jetstream.DeliverAllPolicy
	}

	consumer, err := w.js.CreateOrUpdateConsumer(ctx, w.stream, jetstream.ConsumerConfig{
		Durable:       w.durable,
		FilterSubject: w.subject,
		DeliverPolicy: deliver,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer on %s: %w", w.stream, err)
	}

	iter, err := consumer.Messages()
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", w.stream, err)
	}

	out := make(chan []byte)

	// Next blocks, so cancellation has to stop the iterator from outside.
	go func() {
		<-ctx.Done()
		iter.Stop()
	}()

	go func() {
		defer close(out)
		defer iter.Stop()

		for {
			msg, err := iter.Next()
			if err != nil {
				if errors.Is(err, jetstream.ErrMsgIteratorClosed) || ctx.Err() != nil {
					return
				}
				continue
			}

			select {
			case out <- msg.Data():
				_ = msg.Ack() //nolint:errcheck // redelivered if the ack is lost
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
