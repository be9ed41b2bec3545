package reflux

import (
	"context"
	"sync"
)

// mailbox is an unbounded FIFO queue. push never blocks, which lets the
// dispatch path hand actions to epics without waiting on their consumers.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{signal: make(chan struct{}, 1)}
}

// push enqueues v. It reports false once the mailbox is closed.
func (m *mailbox[T]) push(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, v)
	m.mu.Unlock()

	m.notify()
	return true
}

// close stops accepting values. Values already queued are still drained.
func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.notify()
}

// len returns the number of queued values.
func (m *mailbox[T]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *mailbox[T]) notify() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// pop removes the oldest value. done reports that the mailbox is closed and empty.
func (m *mailbox[T]) pop() (v T, ok bool, done bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items) == 0 {
		return v, false, m.closed
	}
	v = m.items[0]
	var zero T
	m.items[0] = zero
	m.items = m.items[1:]
	return v, true, false
}

// drain starts a goroutine that delivers queued values in order on the
// returned channel. The channel closes when the mailbox is closed and empty,
// or when ctx is done; cancelling ctx also closes the mailbox.
func (m *mailbox[T]) drain(ctx context.Context) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)
		defer m.close()

		for {
			v, ok, done := m.pop()
			if done {
				return
			}
			if !ok {
				select {
				case <-m.signal:
					continue
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
