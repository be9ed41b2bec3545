package reflux

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Middleware intercepts actions on their way to the reducer.
//
// The first stage receives a state accessor and the store's top-level
// dispatch (actions sent there re-enter the whole pipeline). It returns a
// function that wraps the next stage's dispatch. A middleware cancels an
// action by not calling next, substitutes it by calling next with a different
// action, and fans out by calling next more than once.
//
// The first stage runs while the store is being constructed. Calling dispatch
// from it, rather than from a goroutine it starts, blocks forever.
type Middleware[S any] func(getState func() S, dispatch Dispatch) func(next Dispatch) Dispatch

// Combine composes middleware into one. The first middleware is the outermost
// layer: it sees every action first, and actions it passes to next are what
// the remaining middleware and the reducer observe. Nil entries are skipped.
// Combining nothing yields the identity middleware.
func Combine[S any](middleware ...Middleware[S]) Middleware[S] {
	return func(getState func() S, dispatch Dispatch) func(Dispatch) Dispatch {
		chain := make([]func(Dispatch) Dispatch, 0, len(middleware))
		for _, m := range middleware {
			if m == nil {
				continue
			}
			chain = append(chain, m(getState, dispatch))
		}

		return func(next Dispatch) Dispatch {
			for i := len(chain) - 1; i >= 0; i-- {
				next = chain[i](next)
			}
			return next
		}
	}
}

// -----------------------------------------------------------------------------
// Middleware - Adapters (Use*)
// -----------------------------------------------------------------------------

// UseFilter creates middleware that cancels every action for which keep
// returns false. Cancelled actions never reach later middleware or the reducer
// and emit ActionDropped.
func UseFilter[S any](name string, keep func(Action) bool) Middleware[S] {
	return func(_ func() S, _ Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				if !keep(action) {
					dropped(name, action)
					return
				}
				next(action)
			}
		}
	}
}

// UseTransform creates middleware that substitutes each action with the
// result of fn. Everything downstream observes only the substitute.
func UseTransform[S any](fn func(Action) Action) Middleware[S] {
	return func(_ func() S, _ Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				next(fn(action))
			}
		}
	}
}

// UseExpand creates middleware that replaces each action with the actions fn
// returns, passing each to next in order. Returning nothing cancels.
func UseExpand[S any](fn func(Action) []Action) Middleware[S] {
	return func(_ func() S, _ Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				for _, a := range fn(action) {
					next(a)
				}
			}
		}
	}
}

// UseEffect creates middleware that calls fn after the action has passed
// through the rest of the chain. The action is not changed; getState inside
// fn reflects the reduction.
func UseEffect[S any](fn func(getState func() S, action Action)) Middleware[S] {
	return func(getState func() S, _ Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				next(action)
				fn(getState, action)
			}
		}
	}
}

var (
	throttleID      = pipz.NewIdentity("reflux.throttle", "Drops matching actions inside the throttle window")
	throttleAdmitID = pipz.NewIdentity("reflux.throttle.admit", "Passes an admitted action on")
)

// UseThrottle creates middleware that lets at most one action matching match
// through per interval. Later matches inside the window are cancelled.
// Actions that do not match always pass. The window is a pipz token bucket
// holding a single token, refilled over interval on clock.
func UseThrottle[S any](clock clockz.Clock, interval time.Duration, match func(Action) bool) Middleware[S] {
	return func(_ func() S, _ Dispatch) func(Dispatch) Dispatch {
		rate := math.Inf(1)
		if interval > 0 {
			rate = float64(time.Second) / float64(interval)
		}

		admit := pipz.Transform(throttleAdmitID, func(_ context.Context, action Action) Action {
			return action
		})
		limiter := pipz.NewRateLimiter[Action](throttleID, rate, 1, admit).
			WithClock(clock).
			SetMode("drop")

		return func(next Dispatch) Dispatch {
			return func(action Action) {
				if match(action) {
					if _, err := limiter.Process(context.Background(), action); err != nil {
						dropped("throttle", action)
						return
					}
				}
				next(action)
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Middleware - Observability (Use*)
// -----------------------------------------------------------------------------

// UseLogger creates middleware that logs every action at debug level once it
// has passed through the rest of the chain, with the time the chain took on
// clock.
func UseLogger[S any](logger *slog.Logger, clock clockz.Clock) Middleware[S] {
	return func(_ func() S, _ Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				start := clock.Now()
				next(action)
				logger.LogAttrs(
					context.Background(),
					slog.LevelDebug,
					"action dispatched",
					slog.String("action", actionName(action)),
					slog.Duration("duration", clock.Since(start)),
				)
			}
		}
	}
}

// UseTracing creates middleware that wraps the rest of the chain for each
// action in a span named "reflux.dispatch". A panic further down the chain is
// recorded on the span before it continues to unwind.
func UseTracing[S any](tracer trace.Tracer, storeName string) Middleware[S] {
	return func(_ func() S, _ Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				_, span := tracer.Start(context.Background(), "reflux.dispatch",
					trace.WithAttributes(
						attribute.String("reflux.store", storeName),
						attribute.String("reflux.action", actionName(action)),
					),
				)
				defer span.End()
				defer func() {
					if r := recover(); r != nil {
						span.SetStatus(codes.Error, "dispatch panicked")
						panic(r)
					}
				}()
				next(action)
			}
		}
	}
}

func dropped(name string, action Action) {
	capitan.Emit(context.Background(), ActionDropped,
		KeyMiddleware.Field(name),
		KeyAction.Field(actionName(action)),
	)
}
