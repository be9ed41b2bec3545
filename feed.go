package reflux

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Feed watches one or more sources for encoded actions, decodes each message,
// and dispatches the result to a store.
//
// Messages that fail to decode are reported and skipped; the feed keeps
// watching. Health reflects the outcome of the most recent message.
type Feed struct {
	sources      []Watcher
	decoder      Decoder
	debounce     time.Duration
	syncMode     bool
	clock        clockz.Clock
	codec        Codec
	metrics      MetricsProvider
	onStop       func(Health)
	errorHistory *ring[error]

	health     atomic.Int32
	lastError  atomic.Pointer[error]
	dispatched atomic.Int64

	mu      sync.Mutex
	started bool
	dst     Dispatcher

	// For sync mode
	sourceChans []<-chan []byte
}

// NewFeed creates a Feed that decodes messages from sources with decoder.
//
// Example:
//
//	registry := reflux.NewRegistry()
//	reflux.Register[Increment](registry, "increment")
//	reflux.Register[Reset](registry, "reset")
//
//	feed := reflux.NewFeed(registry, redis.New(client, "counter.actions")).
//	    ErrorHistorySize(10)
//	if err := feed.Start(ctx, store); err != nil {
//	    return err
//	}
func NewFeed(decoder Decoder, sources ...Watcher) *Feed {
	f := &Feed{
		sources: sources,
		decoder: decoder,
		clock:   clockz.RealClock,
		codec:   JSONCodec{},
	}
	f.health.Store(int32(HealthLoading))
	return f
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Debounce sets how long a source must stay quiet before its latest message
// is dispatched. Messages arriving within this duration replace each other,
// so only use it for sources that publish whole snapshots, like a control
// file. Default: 0, every message is dispatched. Must be called before Start().
func (f *Feed) Debounce(d time.Duration) *Feed {
	f.debounce = d
	return f
}

// SyncMode enables synchronous processing for testing.
// In sync mode, Start only opens the sources; call Process to handle
// messages one at a time. Must be called before Start().
func (f *Feed) SyncMode() *Feed {
	f.syncMode = true
	return f
}

// Clock sets a custom clock for debounce timing.
// Use this with clockz.FakeClock for deterministic testing.
// Must be called before Start().
func (f *Feed) Clock(clock clockz.Clock) *Feed {
	f.clock = clock
	return f
}

// Codec sets the codec used to decode messages.
// Default: JSONCodec. Must be called before Start().
func (f *Feed) Codec(codec Codec) *Feed {
	f.codec = codec
	return f
}

// Metrics sets a metrics provider notified of decode failures.
// Must be called before Start().
func (f *Feed) Metrics(provider MetricsProvider) *Feed {
	f.metrics = provider
	return f
}

// OnStop sets a callback invoked once every source has stopped. It receives
// the final health. Must be called before Start().
func (f *Feed) OnStop(fn func(Health)) *Feed {
	f.onStop = fn
	return f
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (f *Feed) ErrorHistorySize(n int) *Feed {
	f.errorHistory = newRing[error](n)
	return f
}

// -----------------------------------------------------------------------------
// Feed Operations
// -----------------------------------------------------------------------------

// Health returns the current health of the Feed.
func (f *Feed) Health() Health {
	return Health(f.health.Load())
}

// LastError returns the last decode error, or nil if the most recent message
// was dispatched.
func (f *Feed) LastError() error {
	ptr := f.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent errors, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (f *Feed) ErrorHistory() []error {
	return f.errorHistory.all()
}

// Dispatched returns the number of actions dispatched so far.
func (f *Feed) Dispatched() int64 {
	return f.dispatched.Load()
}

// Start opens every source and dispatches decoded actions to dst until ctx is
// done or every source closes. It returns once the sources are open.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (f *Feed) Start(ctx context.Context, dst Dispatcher) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrAlreadyStarted
	}
	f.started = true
	f.dst = dst
	f.mu.Unlock()

	if len(f.sources) == 0 {
		return fmt.Errorf("feed requires at least one source")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	chans := make([]<-chan []byte, len(f.sources))
	for i, src := range f.sources {
		ch, err := src.Watch(watchCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to start source %d: %w", i, err)
		}
		chans[i] = ch
	}

	capitan.Emit(ctx, FeedStarted,
		KeyDebounce.Field(f.debounce),
	)

	if f.syncMode {
		f.sourceChans = chans
		go func() {
			<-ctx.Done()
			cancel()
		}()
		return nil
	}

	var wg sync.WaitGroup
	for i, ch := range chans {
		wg.Add(1)
		go func(index int, changes <-chan []byte) {
			defer wg.Done()
			f.watch(watchCtx, index, changes)
		}(i, ch)
	}

	go func() {
		wg.Wait()
		cancel()
		f.stop(ctx)
	}()

	return nil
}

// Process handles at most one pending message from each source.
// This is only available in sync mode and is used for deterministic testing.
// Returns false if no message was available.
func (f *Feed) Process(ctx context.Context) bool {
	if !f.syncMode {
		return false
	}

	processed := false
	for i, ch := range f.sourceChans {
		select {
		case raw, ok := <-ch:
			if !ok {
				continue
			}
			f.received(ctx, i)
			_ = f.process(ctx, i, raw) //nolint:errcheck // Errors stored via setError
			processed = true
		default:
		}
	}
	return processed
}

// process decodes a single message and dispatches the action.
func (f *Feed) process(ctx context.Context, source int, raw []byte) error {
	oldHealth := f.Health()

	action, err := f.decoder.Decode(f.codec, raw)
	if err != nil {
		f.setError(err)
		f.transitionHealth(ctx, oldHealth, f.failureHealth())
		capitan.Emit(ctx, FeedDecodeFailed,
			KeySource.Field(source),
			KeyError.Field(err.Error()),
		)
		if f.metrics != nil {
			f.metrics.OnFeedFailure("decode")
		}
		return fmt.Errorf("decode failed: %w", err)
	}

	f.dst.Dispatch(action)
	f.dispatched.Add(1)
	f.lastError.Store(nil)
	f.transitionHealth(ctx, oldHealth, HealthHealthy)
	capitan.Emit(ctx, FeedDispatched,
		KeySource.Field(source),
		KeyAction.Field(actionName(action)),
	)

	return nil
}

// failureHealth returns Empty until an action has been dispatched, Degraded after.
func (f *Feed) failureHealth() Health {
	if f.dispatched.Load() == 0 {
		return HealthEmpty
	}
	return HealthDegraded
}

// transitionHealth updates the health and emits a change event if it changed.
func (f *Feed) transitionHealth(ctx context.Context, oldHealth, newHealth Health) {
	if oldHealth == newHealth {
		return
	}
	f.health.Store(int32(newHealth))
	capitan.Emit(ctx, FeedHealthChanged,
		KeyOldHealth.Field(oldHealth.String()),
		KeyNewHealth.Field(newHealth.String()),
	)
}

// setError stores an error atomically and records it in history.
func (f *Feed) setError(err error) {
	e := err
	f.lastError.Store(&e)
	f.errorHistory.push(err)
}

func (f *Feed) received(ctx context.Context, source int) {
	capitan.Emit(ctx, FeedChangeReceived,
		KeySource.Field(source),
	)
}

// watch processes one source until it closes or ctx is done, debouncing when
// configured.
func (f *Feed) watch(ctx context.Context, source int, changes <-chan []byte) {
	received := make(chan []byte)
	go func() {
		defer close(received)
		for raw := range receive(ctx, changes) {
			f.received(ctx, source)
			if !send(ctx, received, raw) {
				return
			}
		}
	}()

	var messages <-chan []byte = received
	if f.debounce > 0 {
		messages = Debounce(ctx, f.clock, received, f.debounce)
	}

	for raw := range messages {
		if ctx.Err() != nil {
			return
		}
		_ = f.process(ctx, source, raw) //nolint:errcheck // Errors stored via setError
	}
}

func (f *Feed) stop(ctx context.Context) {
	final := f.Health()
	capitan.Emit(context.WithoutCancel(ctx), FeedStopped,
		KeyHealth.Field(final.String()),
	)
	if f.onStop != nil {
		f.onStop(final)
	}
}
