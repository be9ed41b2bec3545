package reflux

// Action describes a state change. Actions are plain values owned by the
// caller; reducers discriminate them with a type switch.
type Action = any

// Dispatch submits an action to a pipeline stage.
type Dispatch func(action Action)

// Reducer folds an action into a new state. Reducers must be pure and total:
// actions they do not recognize return the state unchanged.
//
//	func counter(state int, action reflux.Action) int {
//	    switch a := action.(type) {
//	    case Increment:
//	        return state + a.Amount
//	    default:
//	        return state
//	    }
//	}
type Reducer[S any] func(state S, action Action) S

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Dispatcher is anything that accepts actions.
type Dispatcher interface {
	Dispatch(action Action)
}

// Publisher delivers state values to subscribers.
type Publisher[S any] interface {
	// Subscribe registers fn and immediately calls it with the current state.
	Subscribe(fn func(S)) Unsubscribe
}

// Interface is the contract shared by Store and Derived: dispatching actions,
// subscribing to state, and reading the current state.
type Interface[S any] interface {
	Dispatcher
	Publisher[S]

	// State returns the current state without side effects.
	State() S
}
