package reflux

import "context"

// Watcher observes an external source of actions and emits raw messages on a
// channel. Each emission is one encoded action, decoded by a Feed.
type Watcher interface {
	// Watch begins observing the source and returns a channel that emits
	// one message per action. The channel is closed when the context is
	// canceled or an unrecoverable error occurs.
	Watch(ctx context.Context) (<-chan []byte, error)
}
