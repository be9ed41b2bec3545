package reflux

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultStoreName is the name reported in signals for unnamed stores.
const DefaultStoreName = "store"

// Store holds the current state, applies the reducer to dispatched actions,
// and notifies subscribers of every new state.
//
// Dispatch runs synchronously on the caller's goroutine: middleware, the
// reducer, and every subscriber callback complete before Dispatch returns.
// The reducer runs under the store lock; callbacks run outside it, so they may
// dispatch, subscribe, or unsubscribe reentrantly.
type Store[S any] struct {
	reduce     Reducer[S]
	dispatch   Dispatch
	middleware []Middleware[S]
	ready      chan struct{}
	name       string
	clock      clockz.Clock
	metrics    MetricsProvider

	mu          sync.RWMutex
	state       S
	revision    uint64
	subscribers map[string]*subscription[S]
}

// subscription is a registered callback. delivered holds the revision of the
// last state handed to fn, plus one, so zero means nothing was delivered.
type subscription[S any] struct {
	token     string
	fn        func(S)
	active    atomic.Bool
	delivered atomic.Uint64
}

// New creates a Store with the given initial state, reducer, and middleware.
// It is shorthand for NewStore with WithMiddleware and nothing else.
//
// Middleware is composed with Combine: the first middleware is the outermost
// layer and sees every action first. The chain is fixed for the lifetime of
// the store.
//
// Example:
//
//	store := reflux.New(0, counter,
//	    reflux.UseLogger[int](logger, clockz.RealClock),
//	    reflux.EpicMiddleware(ctx, refund),
//	)
//
//	unsubscribe := store.Subscribe(func(n int) {
//	    fmt.Println("count:", n)
//	})
//	defer unsubscribe()
//
//	store.Dispatch(Increment{Amount: 5})
func New[S any](initial S, reducer Reducer[S], middleware ...Middleware[S]) *Store[S] {
	return NewStore(initial, reducer, WithMiddleware(middleware...))
}

// NewStore creates a Store with the given initial state and reducer,
// configured by opts. Every option is applied before the middleware chain is
// built, so an epic that dispatches while the store starts already sees the
// configured name, clock, and metrics provider.
//
// Example:
//
//	store := reflux.NewStore(0, counter,
//	    reflux.WithName[int]("counter"),
//	    reflux.WithMiddleware(reflux.EpicMiddleware(ctx, boot)),
//	)
func NewStore[S any](initial S, reducer Reducer[S], opts ...Option[S]) *Store[S] {
	s := &Store[S]{
		reduce:      reducer,
		ready:       make(chan struct{}),
		name:        DefaultStoreName,
		clock:       clockz.RealClock,
		state:       initial,
		subscribers: make(map[string]*subscription[S]),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dispatch = Combine(s.middleware...)(s.State, s.Dispatch)(s.apply)
	s.middleware = nil
	close(s.ready)

	capitan.Emit(context.Background(), StoreCreated,
		KeyStore.Field(s.name),
	)

	return s
}

// -----------------------------------------------------------------------------
// Store Options
// -----------------------------------------------------------------------------

// Option configures a Store while NewStore builds it.
type Option[S any] func(*Store[S])

// WithMiddleware appends middleware to the chain. Options are applied in
// order, so middleware from an earlier option is outermost.
func WithMiddleware[S any](middleware ...Middleware[S]) Option[S] {
	return func(s *Store[S]) {
		s.middleware = append(s.middleware, middleware...)
	}
}

// WithName sets the name reported in signals.
func WithName[S any](name string) Option[S] {
	return func(s *Store[S]) {
		s.name = name
	}
}

// WithClock sets the clock used to time dispatches for metrics.
func WithClock[S any](clock clockz.Clock) Option[S] {
	return func(s *Store[S]) {
		s.clock = clock
	}
}

// WithMetrics sets a metrics provider for observability integration.
func WithMetrics[S any](provider MetricsProvider) Option[S] {
	return func(s *Store[S]) {
		s.metrics = provider
	}
}

// -----------------------------------------------------------------------------
// Store Operations
// -----------------------------------------------------------------------------

// Name returns the store name.
func (s *Store[S]) Name() string {
	return s.name
}

// Dispatch runs action through the middleware chain. If the action reaches the
// reducer, the state is replaced and every live subscriber has been called
// with the new state by the time Dispatch returns.
//
// Dispatch may be called from any goroutine. Reducer applications are
// serialized; the relative order of concurrent dispatches is unspecified.
func (s *Store[S]) Dispatch(action Action) {
	<-s.ready
	s.dispatch(action)
}

// Subscribe registers fn and calls it once with the current state before
// returning. The returned Unsubscribe stops further notifications; it is safe
// to call more than once and from within a callback.
func (s *Store[S]) Subscribe(fn func(S)) Unsubscribe {
	sub := &subscription[S]{
		token: uuid.Must(uuid.NewV7()).String(),
		fn:    fn,
	}
	sub.active.Store(true)

	s.mu.Lock()
	s.subscribers[sub.token] = sub
	state, revision := s.state, s.revision
	count := len(s.subscribers)
	s.mu.Unlock()

	capitan.Emit(context.Background(), SubscriptionAdded,
		KeyStore.Field(s.name),
		KeyToken.Field(sub.token),
		KeySubscribers.Field(count),
	)
	if s.metrics != nil {
		s.metrics.OnSubscribe(count)
	}

	sub.deliver(revision, state)

	return func() {
		s.unsubscribe(sub)
	}
}

// State returns the current state.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Revision returns the number of actions reduced so far.
func (s *Store[S]) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Subscribers returns the number of live subscriptions.
func (s *Store[S]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// apply is the terminal stage of the pipeline.
func (s *Store[S]) apply(action Action) {
	start := s.clock.Now()

	state, revision, subs := s.reduceLocked(action)
	for _, sub := range subs {
		sub.deliver(revision, state)
	}

	capitan.Emit(context.Background(), ActionReduced,
		KeyStore.Field(s.name),
		KeyAction.Field(actionName(action)),
		KeyRevision.Field(int(revision)), //nolint:gosec // revision fits in int for any realistic store
		KeySubscribers.Field(len(subs)),
	)
	if s.metrics != nil {
		s.metrics.OnDispatch(s.clock.Since(start))
	}
}

// reduceLocked applies the reducer and snapshots the registry. The state is
// only replaced once the reducer returns, so a panicking reducer leaves the
// store untouched.
func (s *Store[S]) reduceLocked(action Action) (S, uint64, []*subscription[S]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.reduce(s.state, action)
	s.state = next
	s.revision++

	subs := make([]*subscription[S], 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subs = append(subs, sub)
	}
	return next, s.revision, subs
}

func (s *Store[S]) unsubscribe(sub *subscription[S]) {
	if !sub.active.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	delete(s.subscribers, sub.token)
	count := len(s.subscribers)
	s.mu.Unlock()

	capitan.Emit(context.Background(), SubscriptionRemoved,
		KeyStore.Field(s.name),
		KeyToken.Field(sub.token),
		KeySubscribers.Field(count),
	)
	if s.metrics != nil {
		s.metrics.OnUnsubscribe(count)
	}
}

// deliver calls fn unless the subscription was removed or already received
// this revision or a newer one.
func (sub *subscription[S]) deliver(revision uint64, state S) {
	target := revision + 1
	for {
		if !sub.active.Load() {
			return
		}
		last := sub.delivered.Load()
		if last >= target {
			return
		}
		if sub.delivered.CompareAndSwap(last, target) {
			break
		}
	}
	sub.fn(state)
}

// actionName returns the Go type name of an action for signals and logs.
func actionName(action Action) string {
	if action == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", action)
}

var _ Interface[int] = (*Store[int])(nil)
