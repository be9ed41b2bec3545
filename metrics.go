package reflux

import (
	"sync/atomic"
	"time"
)

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key store, epic, and feed events.
type MetricsProvider interface {
	// OnDispatch is called after an action has been reduced and broadcast.
	// Duration covers the reducer and every subscriber callback.
	OnDispatch(duration time.Duration)

	// OnSubscribe is called when a subscriber registers, with the new live count.
	OnSubscribe(active int)

	// OnUnsubscribe is called when a subscriber is removed, with the new live count.
	OnUnsubscribe(active int)

	// OnEpicEmit is called for every action an epic redispatches.
	OnEpicEmit()

	// OnFeedFailure is called when a feed fails to turn a message into an action.
	// Stage is "decode".
	OnFeedFailure(stage string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnDispatch(_ time.Duration) {}
func (NoOpMetricsProvider) OnSubscribe(_ int)          {}
func (NoOpMetricsProvider) OnUnsubscribe(_ int)        {}
func (NoOpMetricsProvider) OnEpicEmit()                {}
func (NoOpMetricsProvider) OnFeedFailure(_ string)     {}

// MetricsSnapshot is a point-in-time copy of Counters.
type MetricsSnapshot struct {
	Dispatches   int64
	DispatchTime time.Duration
	Subscribers  int64
	EpicEmits    int64
	FeedFailures int64
}

// Counters is a MetricsProvider backed by atomic counters.
type Counters struct {
	dispatches   atomic.Int64
	dispatchTime atomic.Int64
	subscribers  atomic.Int64
	epicEmits    atomic.Int64
	feedFailures atomic.Int64
}

// NewCounters creates an empty Counters.
func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) OnDispatch(duration time.Duration) {
	c.dispatches.Add(1)
	c.dispatchTime.Add(int64(duration))
}

func (c *Counters) OnSubscribe(active int) {
	c.subscribers.Store(int64(active))
}

func (c *Counters) OnUnsubscribe(active int) {
	c.subscribers.Store(int64(active))
}

func (c *Counters) OnEpicEmit() {
	c.epicEmits.Add(1)
}

func (c *Counters) OnFeedFailure(_ string) {
	c.feedFailures.Add(1)
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Dispatches:   c.dispatches.Load(),
		DispatchTime: time.Duration(c.dispatchTime.Load()),
		Subscribers:  c.subscribers.Load(),
		EpicEmits:    c.epicEmits.Load(),
		FeedFailures: c.feedFailures.Load(),
	}
}

var (
	_ MetricsProvider = NoOpMetricsProvider{}
	_ MetricsProvider = (*Counters)(nil)
)
