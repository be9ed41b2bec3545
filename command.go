package reflux

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// Command is a procedure that dispatches a sequence of actions, possibly from
// goroutines it starts. Run is called once per execution. done reports that the
// last intended dispatch has been made; only the first call has any effect.
//
// There is no retry and no cancellation: a command that never calls done
// never completes.
type Command[S any] interface {
	Run(getState func() S, dispatch Dispatch, done func())
}

// CommandFunc adapts a function to the Command interface.
type CommandFunc[S any] func(getState func() S, dispatch Dispatch, done func())

// Run calls f.
func (f CommandFunc[S]) Run(getState func() S, dispatch Dispatch, done func()) {
	f(getState, dispatch, done)
}

// Run executes cmd against store without tracking completion.
func Run[S any](store Interface[S], cmd Command[S]) {
	execute(store.State, store.Dispatch, cmd, nil)
}

// RunWithCompletion executes cmd against store and calls completion the first
// time the command reports it is done.
//
// Example:
//
//	reflux.RunWithCompletion[int](store, reflux.CommandFunc[int](
//	    func(_ func() int, dispatch reflux.Dispatch, done func()) {
//	        go func() {
//	            dispatch(Increment{Amount: fetch()})
//	            done()
//	        }()
//	    },
//	), func() { log.Println("loaded") })
func RunWithCompletion[S any](store Interface[S], cmd Command[S], completion func()) {
	execute(store.State, store.Dispatch, cmd, completion)
}

// UseCommands creates middleware that executes Command values dispatched as
// actions instead of passing them on. Commands run with the store's state
// accessor and top-level dispatch. Every other action passes unchanged.
//
// Only Command[S] for the store's own state type is recognised. A Derived
// forwards dispatches to its origin untouched, so a Command[T] dispatched
// through a Derived[T] reaches the reducer as an ordinary action. Use Run or
// RunWithCompletion to execute commands against a derived view.
func UseCommands[S any]() Middleware[S] {
	return func(getState func() S, dispatch Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				if cmd, ok := action.(Command[S]); ok {
					execute(getState, dispatch, cmd, nil)
					return
				}
				next(action)
			}
		}
	}
}

func execute[S any](getState func() S, dispatch Dispatch, cmd Command[S], completion func()) {
	name := commandName(cmd)
	capitan.Emit(context.Background(), CommandStarted,
		KeyCommand.Field(name),
	)

	var once sync.Once
	done := func() {
		once.Do(func() {
			capitan.Emit(context.Background(), CommandCompleted,
				KeyCommand.Field(name),
			)
			if completion != nil {
				completion()
			}
		})
	}

	cmd.Run(getState, dispatch, done)
}

// commandName returns the command's Name when it has one, otherwise its type.
func commandName(cmd any) string {
	if named, ok := cmd.(interface{ Name() string }); ok {
		return named.Name()
	}
	return actionName(cmd)
}
