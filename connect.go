package reflux

import "context"

// Connect dispatches every action received on actions to dst, in order, on
// the calling goroutine. It returns nil when actions closes and ctx.Err()
// when ctx is done first.
//
// Example:
//
//	go func() {
//	    if err := reflux.Connect(ctx, store, events); err != nil {
//	        log.Println("feed disconnected:", err)
//	    }
//	}()
func Connect(ctx context.Context, dst Dispatcher, actions <-chan Action) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case action, ok := <-actions:
			if !ok {
				return nil
			}
			dst.Dispatch(action)
		}
	}
}

// Changes returns a channel carrying the current state of src followed by
// every later state, in order. States are queued without bound, so a slow
// reader never blocks a dispatch. The subscription is removed and the channel
// closed when ctx is done.
func Changes[S any](ctx context.Context, src Publisher[S]) <-chan S {
	states := newMailbox[S]()
	unsubscribe := src.Subscribe(func(s S) {
		states.push(s)
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		states.close()
	}()

	return states.drain(ctx)
}
