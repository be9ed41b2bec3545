// Package testing provides test utilities and fixtures for reflux stores and feeds.
package testing

import (
	"testing"
	"time"

	"github.com/zoobzio/reflux"
)

// Add is a fixture action that adds Amount to a counter.
type Add struct {
	Amount int `json:"amount" yaml:"amount"`
}

// Clear is a fixture action that resets a counter to zero.
type Clear struct{}

// CounterReducer reduces Add and Clear over an int counter.
func CounterReducer(state int, action reflux.Action) int {
	switch a := action.(type) {
	case Add:
		return state + a.Amount
	case Clear:
		return 0
	default:
		return state
	}
}

// CounterRegistry returns a Registry that decodes "add" and "clear" messages.
func CounterRegistry() *reflux.Registry {
	r := reflux.NewRegistry()
	reflux.Register[Add](r, "add")
	reflux.Register[Clear](r, "clear")
	return r
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the store holds the expected state or timeout occurs.
func WaitForState[S comparable](t *testing.T, store reflux.Interface[S], expected S, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return store.State() == expected
	})
}

// RequireState fails the test immediately if the store does not hold the expected state.
func RequireState[S comparable](t *testing.T, store reflux.Interface[S], expected S) {
	t.Helper()
	if got := store.State(); got != expected {
		t.Fatalf("expected state %v, got %v", expected, got)
	}
}

// RequireHealth fails the test immediately if the feed is not in the expected health.
func RequireHealth(t *testing.T, f *reflux.Feed, expected reflux.Health) {
	t.Helper()
	if got := f.Health(); got != expected {
		t.Fatalf("expected health %s, got %s", expected, got)
	}
}

// NewTestFeed creates a sync-mode feed over a channel, decoding with
// CounterRegistry. Returns the feed and a channel for sending test messages.
func NewTestFeed(t *testing.T) (*reflux.Feed, chan<- []byte) {
	t.Helper()
	ch := make(chan []byte, 10)
	f := reflux.NewFeed(
		CounterRegistry(),
		reflux.NewSyncChannelWatcher(ch),
	).SyncMode()
	return f, ch
}
