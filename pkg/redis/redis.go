// Package redis provides a reflux.Watcher that reads encoded actions from
// Redis pub/sub channels.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Watcher subscribes to one or more Redis channels. Every published message
// is emitted as one action message.
//
// Pub/sub delivery is at-most-once: messages published while the watcher is
// not subscribed are lost.
//
// Publishing an action:
//
//	client.Publish(ctx, "counter.actions", `{"kind":"increment","amount":5}`)
type Watcher struct {
	client   *redis.Client
	channels []string
	pattern  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPattern treats the channel names as glob patterns (PSUBSCRIBE).
func WithPattern() Option {
	return func(w *Watcher) {
		w.pattern = true
	}
}

// WithChannels subscribes to further channels besides the one given to New.
func WithChannels(channels ...string) Option {
	return func(w *Watcher) {
		w.channels = append(w.channels, channels...)
	}
}

// New creates a Watcher for the given Redis channel.
func New(client *redis.Client, channel string, opts ...Option) *Watcher {
	w := &Watcher{
		client:   client,
		channels: []string{channel},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch subscribes and returns a channel that emits every published message
// payload. The subscription is confirmed before Watch returns, so messages
// published afterwards are not missed.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if w.pattern {
		pubsub = w.client.PSubscribe(ctx, w.channels...)
	} else {
		pubsub = w.client.Subscribe(ctx, w.channels...)
	}

	// Verify subscription worked
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", w.channels, err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
