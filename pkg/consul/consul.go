// Package consul provides a reflux.Watcher that reads encoded actions from a
// Consul KV prefix using blocking queries.
package consul

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
)

// retryDelay paces blocking queries after a failed request.
const retryDelay = time.Second

// Watcher treats the keys under a prefix as an append-only action log. Every
// key created under the prefix is emitted once, in creation order. Updates
// to existing keys and deletes are ignored.
type Watcher struct {
	client *api.Client
	prefix string
	replay bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithReplay emits the keys present when Watch is called before new ones.
func WithReplay() Option {
	return func(w *Watcher) {
		w.replay = true
	}
}

// New creates a new Watcher for the given Consul KV prefix.
func New(client *api.Client, prefix string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Append stores data under a fresh key beneath prefix.
func Append(ctx context.Context, client *api.Client, prefix string, data []byte) error {
	key := prefix + uuid.Must(uuid.NewV7()).String()
	wopts := (&api.WriteOptions{}).WithContext(ctx)
	if _, err := client.KV().Put(&api.KVPair{Key: key, Value: data}, wopts); err != nil {
		return fmt.Errorf("failed to append to %s: %w", prefix, err)
	}
	return nil
}

// Watch lists the prefix and returns a channel that emits the value of every
// key created afterwards.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	kv := w.client.KV()

	pairs, meta, err := kv.List(w.prefix, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", w.prefix, err)
	}

	index := meta.LastIndex
	var seen cursor
	if !w.replay {
		for _, pair := range pairs {
			seen.mark(pair)
		}
		pairs = nil
	}

	out := make(chan []byte)

	go func() {
		defer close(out)

		for {
			sort.Slice(pairs, func(i, j int) bool {
				if pairs[i].CreateIndex != pairs[j].CreateIndex {
					return pairs[i].CreateIndex < pairs[j].CreateIndex
				}
				return pairs[i].Key < pairs[j].Key
			})
			for _, pair := range pairs {
				if !seen.fresh(pair) {
					continue
				}
				seen.mark(pair)

				select {
				case out <- pair.Value:
				case <-ctx.Done():
					return
				}
			}

			opts := (&api.QueryOptions{WaitIndex: index}).WithContext(ctx)
			next, meta, err := kv.List(w.prefix, opts)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				select {
				case <-time.After(retryDelay):
				case <-ctx.Done():
					return
				}
				pairs = nil
				continue
			}

			// The index can go backwards after a snapshot restore.
			if meta.LastIndex < index {
				index = 0
			} else {
				index = meta.LastIndex
			}
			pairs = next
		}
	}()

	return out, nil
}

// cursor tracks the newest CreateIndex emitted and the keys emitted at it.
// Keys written in one transaction share a CreateIndex.
type cursor struct {
	index uint64
	keys  map[string]struct{}
}

func (c *cursor) fresh(pair *api.KVPair) bool {
	if pair.CreateIndex != c.index {
		return pair.CreateIndex > c.index
	}
	_, ok := c.keys[pair.Key]
	return !ok
}

func (c *cursor) mark(pair *api.KVPair) {
	if pair.CreateIndex < c.index {
		return
	}
	if pair.CreateIndex > c.index || c.keys == nil {
		c.index = pair.CreateIndex
		c.keys = make(map[string]struct{})
	}
	c.keys[pair.Key] = struct{}{}
}
