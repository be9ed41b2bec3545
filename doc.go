/*
Package reflux provides a predictable state container: a single value of
application state that changes only by dispatching actions through a pure
reducer.

reflux is designed to be embedded within services that own a piece of shared
state, not run as a standalone service. It follows a builder pattern similar
to zlog, allowing services to compose middleware, epics, and feeds around a
store.

# Basic Usage

Define actions as plain values and a reducer that folds them into state:

	type Increment struct{ Amount int }
	type Reset struct{}

	func reduce(state int, action reflux.Action) int {
	    switch a := action.(type) {
	    case Increment:
	        return state + a.Amount
	    case Reset:
	        return 0
	    default:
	        return state
	    }
	}

Create a store, subscribe, and dispatch:

	store := reflux.New(0, reduce)

	unsubscribe := store.Subscribe(func(n int) {
	    fmt.Println("counter:", n) // Called with 0 immediately
	})
	defer unsubscribe()

	store.Dispatch(Increment{Amount: 5})

Dispatch is synchronous: when it returns the action has been reduced and
every subscriber notified. Subscribers may dispatch from their callbacks.

# Middleware

Middleware wraps dispatch. The first middleware given to New sees each action
first and may pass it on, replace it, fan it out, or drop it:

	store := reflux.New(0, reduce,
	    reflux.UseLogger[int](logger, clock),                 // slog every action
	    reflux.UseTracing[int](tracer, "counter"),            // One span per dispatch
	    reflux.UseFilter[int]("no-resets", notReset),         // Drop actions
	    reflux.UseThrottle[int](clock, time.Second, isClick), // Rate limit
	)

NewStore takes options instead, applied before the chain is built:

	store := reflux.NewStore(0, reduce,
	    reflux.WithName[int]("counter"),
	    reflux.WithMetrics[int](counters),
	    reflux.WithMiddleware(reflux.EpicMiddleware(ctx, boot)),
	)

# Epics

An epic turns the stream of reduced actions into follow-up actions. The
channel operators in this package compose the stream:

	func refund(ctx context.Context, _ func() Cart, actions <-chan reflux.Action) <-chan reflux.Action {
	    removed := reflux.OfType[ItemRemoved](ctx, actions)
	    return reflux.Map(ctx, removed, func(a ItemRemoved) reflux.Action {
	        return RefundIssued{SKU: a.SKU}
	    })
	}

	store := reflux.New(Cart{}, reduceCart, reflux.EpicMiddleware(ctx, refund))

Emitted actions are dispatched asynchronously from the top of the chain.

# Commands and Derived Stores

Commands run procedures that dispatch over time:

	reflux.RunWithCompletion[int](store, fetchCommand, func() {
	    log.Println("loaded")
	})

Derived stores project another store's state:

	total := reflux.Derive[Cart, int](store, Cart.Total)

# Feeds

A Feed decodes encoded actions from external sources and dispatches them:

	registry := reflux.NewRegistry()
	reflux.Register[Increment](registry, "increment")

	feed := reflux.NewFeed(registry, redis.New(client, "counter.actions"))
	if err := feed.Start(ctx, store); err != nil {
	    return err
	}

Sources live in pkg/. Broadcast sources (Redis pub/sub, NATS subjects,
PostgreSQL LISTEN/NOTIFY) deliver actions published while the feed runs.
Log sources (JetStream streams, etcd and Consul key prefixes, ZooKeeper
sequential nodes) retain actions, so a fresh store can replay them.
FileWatcher and ChannelWatcher ship with the core package.

# Observability

Stores, epics, commands, and feeds emit capitan signals. Hook them for
auditing or metrics:

	capitan.Hook(reflux.ActionReduced, func(_ context.Context, e *capitan.Event) {
	    action, _ := reflux.KeyAction.From(e)
	    log.Println("reduced", action)
	})
*/
package reflux
