// Package zookeeper provides a reflux.Watcher that reads encoded actions from
// sequential ZooKeeper nodes.
package zookeeper

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-zookeeper/zk"
)

// NodePrefix is the name prefix of the action nodes created by Append.
const NodePrefix = "action-"

// Watcher reads the sequential children of a parent node as an action queue.
// Children are emitted in sequence order, each exactly once per watcher.
type Watcher struct {
	conn    *zk.Conn
	path    string
	replay  bool
	consume bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithReplay emits the children present when Watch is called before new
// ones. Without it only children created afterwards are emitted.
func WithReplay() Option {
	return func(w *Watcher) {
		w.replay = true
	}
}

// WithConsume deletes each child before emitting it. Watchers sharing a
// parent in this mode compete for children: each child reaches exactly one
// of them. Children already waiting are consumed as well.
func WithConsume() Option {
	return func(w *Watcher) {
		w.consume = true
	}
}

// New creates a new Watcher for the children of the given parent path.
func New(conn *zk.Conn, path string, opts ...Option) *Watcher {
	w := &Watcher{
		conn: conn,
		path: path,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Append creates a sequential child of path holding data and returns the
// full path of the new node.
func Append(conn *zk.Conn, path string, data []byte) (string, error) {
	created, err := conn.Create(path+"/"+NodePrefix, data, zk.FlagSequence, zk.WorldACL(zk.PermAll))
	if err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return created, nil
}

// Watch begins watching the parent node and returns a channel that emits the
// data of every new child. The parent must exist.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	children, _, err := w.conn.Children(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", w.path, err)
	}

	var last string
	if !w.replay && !w.consume {
		sortBySequence(children)
		if len(children) > 0 {
			last = sequence(children[len(children)-1])
		}
	}

	out := make(chan []byte)

	go func() {
		defer close(out)

		for {
			children, _, events, err := w.conn.ChildrenW(w.path)
			if err != nil {
				return
			}

			sortBySequence(children)
			for _, child := range children {
				seq := sequence(child)
				if seq <= last {
					continue
				}

				data, ok := w.take(w.path + "/" + child)
				if !ok {
					continue
				}
				last = seq

				select {
				case out <- data:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-events:
			}
		}
	}()

	return out, nil
}

// take reads a child and, when consuming, claims it by deleting it. It
// reports false when the child vanished or another watcher claimed it.
func (w *Watcher) take(path string) ([]byte, bool) {
	data, stat, err := w.conn.Get(path)
	if err != nil {
		return nil, false
	}
	if w.consume {
		// Losing the delete means another watcher claimed the child.
		if err := w.conn.Delete(path, stat.Version); err != nil {
			return nil, false
		}
	}
	return data, true
}

// sequence returns the ten digit counter ZooKeeper appends to sequential nodes.
func sequence(name string) string {
	if len(name) < 10 {
		return name
	}
	return name[len(name)-10:]
}

func sortBySequence(children []string) {
	sort.Slice(children, func(i, j int) bool {
		return sequence(children[i]) < sequence(children[j])
	})
}
