package reflux

import (
	"context"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// DefaultEpicName is the name reported in signals for unnamed bridges.
const DefaultEpicName = "epic"

// Epic turns the stream of dispatched actions into a stream of follow-up
// actions. Every action that passes the bridge arrives on actions after it has
// been reduced; every action sent on the returned channel is dispatched to the
// store from the top of its middleware chain.
//
// An epic must return promptly. The returned channel should close when ctx is
// done or actions closes; the stream operators in this package do both.
//
// Example:
//
//	func refund(ctx context.Context, _ func() Cart, actions <-chan reflux.Action) <-chan reflux.Action {
//	    removed := reflux.OfType[ItemRemoved](ctx, actions)
//	    return reflux.Map(ctx, removed, func(a ItemRemoved) reflux.Action {
//	        return RefundIssued{SKU: a.SKU}
//	    })
//	}
type Epic[S any] func(ctx context.Context, getState func() S, actions <-chan Action) <-chan Action

// CombineEpics merges epics into one. Each epic reads its own copy of the
// action stream, so a slow epic never holds back another. Emissions of
// different epics interleave in no particular order. Nil entries are skipped.
func CombineEpics[S any](epics ...Epic[S]) Epic[S] {
	return func(ctx context.Context, getState func() S, actions <-chan Action) <-chan Action {
		inboxes := make([]*mailbox[Action], 0, len(epics))
		outs := make([]<-chan Action, 0, len(epics))
		for _, epic := range epics {
			if epic == nil {
				continue
			}
			inbox := newMailbox[Action]()
			inboxes = append(inboxes, inbox)
			outs = append(outs, epic(ctx, getState, inbox.drain(ctx)))
		}

		go func() {
			defer func() {
				for _, inbox := range inboxes {
					inbox.close()
				}
			}()
			for action := range receive(ctx, actions) {
				for _, inbox := range inboxes {
					inbox.push(action)
				}
			}
		}()

		return Merge(ctx, outs...)
	}
}

// Phase is the lifecycle position of a Bridge.
type Phase int32

const (
	// PhasePending indicates the bridge has not been installed in a store.
	PhasePending Phase = iota

	// PhaseRunning indicates the epic is observing actions.
	PhaseRunning

	// PhaseStopped indicates the bridge context ended or the epic's output
	// closed. Later actions still pass through but are no longer observed.
	PhaseStopped
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseRunning:
		return "running"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Bridge installs an epic as middleware.
//
// Actions are handed to the epic through an unbounded queue, so a dispatch
// never waits on the epic. Actions the epic emits are dispatched from a
// goroutine owned by the bridge, never from the call stack of the action that
// caused them, which keeps an epic reacting to its own output from growing
// the stack.
type Bridge[S any] struct {
	ctx     context.Context
	epic    Epic[S]
	name    string
	metrics MetricsProvider
	onStop  func(Phase)

	phase    atomic.Int32
	observed atomic.Int64
	emitted  atomic.Int64
}

// NewBridge creates a Bridge that runs epic until ctx is done.
//
// Example:
//
//	bridge := reflux.NewBridge(ctx, reflux.CombineEpics(refund, audit)).
//	    Named("checkout").
//	    OnStop(func(p reflux.Phase) { log.Println("epics", p) })
//
//	store := reflux.New(Cart{}, reduce, bridge.Middleware())
func NewBridge[S any](ctx context.Context, epic Epic[S]) *Bridge[S] {
	return &Bridge[S]{
		ctx:  ctx,
		epic: epic,
		name: DefaultEpicName,
	}
}

// EpicMiddleware combines epics and returns middleware that runs them until
// ctx is done.
func EpicMiddleware[S any](ctx context.Context, epics ...Epic[S]) Middleware[S] {
	return NewBridge(ctx, CombineEpics(epics...)).Middleware()
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Named sets the name reported in signals. Must be called before Middleware().
func (b *Bridge[S]) Named(name string) *Bridge[S] {
	b.name = name
	return b
}

// Metrics sets a metrics provider notified of every emitted action.
// Must be called before Middleware().
func (b *Bridge[S]) Metrics(provider MetricsProvider) *Bridge[S] {
	b.metrics = provider
	return b
}

// OnStop sets a callback invoked once the bridge stops. It receives
// PhaseStopped. Must be called before Middleware().
func (b *Bridge[S]) OnStop(fn func(Phase)) *Bridge[S] {
	b.onStop = fn
	return b
}

// -----------------------------------------------------------------------------
// Bridge Operations
// -----------------------------------------------------------------------------

// Phase returns the current lifecycle phase.
func (b *Bridge[S]) Phase() Phase {
	return Phase(b.phase.Load())
}

// Observed returns the number of actions handed to the epic.
func (b *Bridge[S]) Observed() int64 {
	return b.observed.Load()
}

// Emitted returns the number of actions the epic emitted and the bridge
// dispatched.
func (b *Bridge[S]) Emitted() int64 {
	return b.emitted.Load()
}

// Middleware returns the middleware that feeds the epic. The epic is started
// when the store applies the middleware, once per store it is installed in.
func (b *Bridge[S]) Middleware() Middleware[S] {
	return func(getState func() S, dispatch Dispatch) func(Dispatch) Dispatch {
		inbox := newMailbox[Action]()
		out := b.epic(b.ctx, getState, inbox.drain(b.ctx))

		b.phase.Store(int32(PhaseRunning))
		capitan.Emit(b.ctx, EpicStarted,
			KeyEpic.Field(b.name),
		)

		go b.forward(inbox, out, dispatch)

		return func(next Dispatch) Dispatch {
			return func(action Action) {
				next(action)
				if inbox.push(action) {
					b.observed.Add(1)
				}
			}
		}
	}
}

// forward dispatches every action the epic emits until the epic's output
// closes or the bridge context ends.
func (b *Bridge[S]) forward(inbox *mailbox[Action], out <-chan Action, dispatch Dispatch) {
	defer b.stop(inbox)

	for {
		select {
		case <-b.ctx.Done():
			return

		case action, ok := <-out:
			if !ok {
				return
			}

			dispatch(action)
			b.emitted.Add(1)

			capitan.Emit(b.ctx, EpicEmitted,
				KeyEpic.Field(b.name),
				KeyAction.Field(actionName(action)),
			)
			if b.metrics != nil {
				b.metrics.OnEpicEmit()
			}
		}
	}
}

func (b *Bridge[S]) stop(inbox *mailbox[Action]) {
	inbox.close()
	b.phase.Store(int32(PhaseStopped))

	// The bridge context is usually done by now, so the signal carries a
	// fresh one.
	capitan.Emit(context.Background(), EpicStopped,
		KeyEpic.Field(b.name),
	)
	if b.onStop != nil {
		b.onStop(PhaseStopped)
	}
}
