package reflux

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/streamz"
)

// Stream operators build epics out of channels. They close their output when
// the input closes or ctx is done and keep the order of what they forward.
// The timed and fan-in operators run on streamz processors.
//
//	func refund(ctx context.Context, _ func() Cart, actions <-chan reflux.Action) <-chan reflux.Action {
//	    removed := reflux.OfType[ItemRemoved](ctx, actions)
//	    return reflux.Map(ctx, removed, func(a ItemRemoved) reflux.Action {
//	        return RefundIssued{SKU: a.SKU}
//	    })
//	}

// Map applies fn to every value.
func Map[T, U any](ctx context.Context, in <-chan T, fn func(T) U) <-chan U {
	mapper := streamz.NewMapper(func(_ context.Context, v T) (U, error) {
		return fn(v), nil
	}).WithName("map")
	return unwrap(ctx, mapper.Process(ctx, lift(ctx, in)))
}

// Filter forwards the values for which keep returns true.
func Filter[T any](ctx context.Context, in <-chan T, keep func(T) bool) <-chan T {
	filter := streamz.NewFilter(keep).WithName("filter")
	return unwrap(ctx, filter.Process(ctx, lift(ctx, in)))
}

// FlatMap forwards every value fn returns for each input, in order.
func FlatMap[T, U any](ctx context.Context, in <-chan T, fn func(T) []U) <-chan U {
	out := make(chan U)
	go func() {
		defer close(out)
		for v := range receive(ctx, in) {
			for _, u := range fn(v) {
				if !send(ctx, out, u) {
					return
				}
			}
		}
	}()
	return out
}

// OfType forwards the actions whose dynamic type is A.
func OfType[A any](ctx context.Context, in <-chan Action) <-chan A {
	out := make(chan A)
	go func() {
		defer close(out)
		for v := range receive(ctx, in) {
			a, ok := v.(A)
			if !ok {
				continue
			}
			if !send(ctx, out, a) {
				return
			}
		}
	}()
	return out
}

// Widen converts a typed channel into an action channel.
func Widen[T any](ctx context.Context, in <-chan T) <-chan Action {
	return Map(ctx, in, func(v T) Action { return v })
}

// Merge forwards values from every input as they arrive. There is no ordering
// across inputs. The output closes once every input has closed.
func Merge[T any](ctx context.Context, ins ...<-chan T) <-chan T {
	lifted := make([]<-chan streamz.Result[T], len(ins))
	for i, in := range ins {
		lifted[i] = lift(ctx, in)
	}
	return unwrap(ctx, streamz.NewFanIn[T]().Process(ctx, lifted...))
}

// Buffer collects size values and emits them as one slice. A partial batch is
// emitted when the input closes.
func Buffer[T any](ctx context.Context, in <-chan T, size int) <-chan []T {
	return BufferTime(ctx, streamz.RealClock, in, size, 0)
}

// BufferTime collects up to size values and emits them as one slice, or emits
// a partial batch once maxWait has passed since its first value. A maxWait of
// zero waits for a full batch.
func BufferTime[T any](ctx context.Context, clock clockz.Clock, in <-chan T, size int, maxWait time.Duration) <-chan []T {
	if size < 1 {
		size = 1
	}
	batcher := streamz.NewBatcher[T](streamz.BatchConfig{
		MaxSize:    size,
		MaxLatency: maxWait,
	}, clock)
	return unwrap(ctx, batcher.Process(ctx, lift(ctx, in)))
}

// Throttle forwards the first value and drops everything else until d has
// passed on clock.
func Throttle[T any](ctx context.Context, clock clockz.Clock, in <-chan T, d time.Duration) <-chan T {
	throttle := streamz.NewThrottle[T](d, clock)
	return unwrap(ctx, throttle.Process(ctx, lift(ctx, in)))
}

// Delay shifts every value d later on clock. Values keep their order and
// spacing; a slow consumer does not delay the timestamps of later values.
func Delay[T any](ctx context.Context, clock clockz.Clock, in <-chan T, d time.Duration) <-chan T {
	type due struct {
		value T
		at    time.Time
	}

	pending := newMailbox[due]()
	go func() {
		defer pending.close()
		for v := range receive(ctx, in) {
			pending.push(due{value: v, at: clock.Now().Add(d)})
		}
	}()

	out := make(chan T)
	go func() {
		defer close(out)
		for item := range pending.drain(ctx) {
			if wait := item.at.Sub(clock.Now()); wait > 0 {
				timer := clock.NewTimer(wait)
				select {
				case <-timer.C():
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
			if !send(ctx, out, item.value) {
				return
			}
		}
	}()
	return out
}

// Debounce emits the latest value once d has passed without a newer one.
// A pending value is flushed when the input closes.
func Debounce[T any](ctx context.Context, clock clockz.Clock, in <-chan T, d time.Duration) <-chan T {
	debounce := streamz.NewDebounce[T](d, clock)
	return unwrap(ctx, debounce.Process(ctx, lift(ctx, in)))
}

// lift wraps every value from in as a successful result.
func lift[T any](ctx context.Context, in <-chan T) <-chan streamz.Result[T] {
	out := make(chan streamz.Result[T])
	go func() {
		defer close(out)
		for v := range receive(ctx, in) {
			if !send(ctx, out, streamz.NewSuccess(v)) {
				return
			}
		}
	}()
	return out
}

// unwrap forwards the values of successful results. Operators here never
// produce failed results.
func unwrap[T any](ctx context.Context, in <-chan streamz.Result[T]) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for r := range in {
			if r.IsError() {
				continue
			}
			if !send(ctx, out, r.Value()) {
				return
			}
		}
	}()
	return out
}

// receive yields values from in until it closes or ctx is done.
func receive[T any](ctx context.Context, in <-chan T) <-chan T {
	if ctx.Done() == nil {
		return in
	}
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// send delivers v on out unless ctx is done first.
func send[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
