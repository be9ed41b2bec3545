package reflux

import "context"

// ChannelWatcher wraps an existing message channel as a Watcher.
// Useful for testing and for in-process producers that already encode actions.
type ChannelWatcher struct {
	ch   <-chan []byte
	sync bool
}

// NewChannelWatcher creates a ChannelWatcher that forwards messages from ch
// until ch closes or the watch context is done.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, sync: false}
}

// NewSyncChannelWatcher creates a ChannelWatcher that hands out ch itself.
// Pair it with Feed.SyncMode for deterministic tests.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, sync: true}
}

// Watch returns a channel that emits the messages of the wrapped channel.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.sync {
		return w.ch, nil
	}
	return receive(ctx, w.ch), nil
}

var _ Watcher = (*ChannelWatcher)(nil)
