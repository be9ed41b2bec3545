package reflux

// Derived is a read-transformed view of another store. It owns no state:
// State computes the projection on demand and Dispatch forwards to the
// origin unchanged. Derived implements Interface, so derivations chain and
// commands run against a Derived see the projected state.
type Derived[T any] struct {
	dispatch  func(Action)
	subscribe func(func(T)) Unsubscribe
	state     func() T
}

// Derive returns a view of src whose state is transform applied to src's
// state. transform must be pure; it runs on every read and every delivery.
//
// Example:
//
//	total := reflux.Derive[Cart, int](store, func(c Cart) int {
//	    return c.Total()
//	})
//	total.Subscribe(func(n int) { fmt.Println("total:", n) })
func Derive[S, T any](src Interface[S], transform func(S) T) *Derived[T] {
	return &Derived[T]{
		dispatch: src.Dispatch,
		subscribe: func(fn func(T)) Unsubscribe {
			return src.Subscribe(func(s S) {
				fn(transform(s))
			})
		},
		state: func() T {
			return transform(src.State())
		},
	}
}

// Dispatch forwards action to the origin store. A Command[T] sent here is not
// executed by the origin's UseCommands; run it with Run instead.
func (d *Derived[T]) Dispatch(action Action) {
	d.dispatch(action)
}

// Subscribe registers fn on the origin store. fn receives the projection of
// the current state immediately and of every later state.
func (d *Derived[T]) Subscribe(fn func(T)) Unsubscribe {
	return d.subscribe(fn)
}

// State returns the projection of the origin's current state.
func (d *Derived[T]) State() T {
	return d.state()
}

var _ Interface[int] = (*Derived[int])(nil)
