// Package etcd provides a reflux.Watcher that reads encoded actions from an
// etcd key prefix using the native Watch API.
package etcd

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Watcher treats every key under a prefix as an action log. Each put under
// the prefix is emitted as one action message, in revision order.
//
// etcd delivers every revision to a watch, so no put is coalesced away.
// Producers append with a unique key per action:
//
//	client.Put(ctx, "/counter/actions/"+uuid.NewString(), `{"kind":"increment","amount":5}`)
type Watcher struct {
	client   *clientv3.Client
	prefix   string
	revision int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// FromRevision replays puts starting at rev before following new ones.
// Revisions already compacted away cannot be replayed; Watch then closes
// its channel. Use 1 to replay the whole retained history.
func FromRevision(rev int64) Option {
	return func(w *Watcher) {
		w.revision = rev
	}
}

// New creates a new Watcher for the given etcd key prefix.
func New(client *clientv3.Client, prefix string, opts ...Option) *Watcher {
	w := &Watcher{
		client: client,
		prefix: prefix,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch begins watching the prefix and returns a channel that emits the
// value of every put. Without FromRevision, only puts made after Watch
// returns are emitted.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	rev := w.revision
	if rev <= 0 {
		resp, err := w.client.Get(ctx, w.prefix, clientv3.WithPrefix(), clientv3.WithCountOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to read current revision: %w", err)
		}
		rev = resp.Header.Revision + 1
	}

	watchChan := w.client.Watch(ctx, w.prefix, clientv3.WithPrefix(), clientv3.WithRev(rev))

	out := make(chan []byte)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case watchResp, ok := <-watchChan:
				if !ok {
					return
				}
				if watchResp.Canceled {
					return
				}
				if watchResp.Err() != nil {
					continue
				}

				for _, event := range watchResp.Events {
					// Deletes trim the log; they are not actions.
					if event.Type != clientv3.EventTypePut {
						continue
					}
					select {
					case out <- event.Kv.Value:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}
