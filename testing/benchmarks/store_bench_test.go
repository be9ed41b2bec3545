package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/zoobzio/reflux"
	refluxtest "github.com/zoobzio/reflux/testing"
)

func BenchmarkStore_Dispatch(b *testing.B) {
	store := reflux.New(0, refluxtest.CounterReducer)
	action := refluxtest.Add{Amount: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Dispatch(action)
	}
}

func BenchmarkStore_DispatchParallel(b *testing.B) {
	store := reflux.New(0, refluxtest.CounterReducer)
	action := refluxtest.Add{Amount: 1}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			store.Dispatch(action)
		}
	})
}

func BenchmarkStore_DispatchSubscribers(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("subscribers=%d", n), func(b *testing.B) {
			store := reflux.New(0, refluxtest.CounterReducer)
			var last int
			for i := 0; i < n; i++ {
				store.Subscribe(func(s int) { last = s })
			}
			action := refluxtest.Add{Amount: 1}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				store.Dispatch(action)
			}

			// Prevent compiler optimization
			if last < 0 {
				b.Fatal("unexpected")
			}
		})
	}
}

func BenchmarkStore_DispatchMiddleware(b *testing.B) {
	store := reflux.New(0, refluxtest.CounterReducer,
		reflux.UseFilter[int]("all", func(reflux.Action) bool { return true }),
		reflux.UseTransform[int](func(a reflux.Action) reflux.Action { return a }),
		reflux.NewRecorder[int]().Limit(64).Middleware(),
	)
	action := refluxtest.Add{Amount: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Dispatch(action)
	}
}

func BenchmarkFeed_ProcessSingle(b *testing.B) {
	ch := make(chan []byte, b.N)
	for i := 0; i < b.N; i++ {
		ch <- []byte(fmt.Sprintf(`{"kind": "add", "amount": %d}`, i))
	}

	store := reflux.New(0, refluxtest.CounterReducer)
	f := reflux.NewFeed(refluxtest.CounterRegistry(), reflux.NewSyncChannelWatcher(ch)).SyncMode()

	ctx := context.Background()
	if err := f.Start(ctx, store); err != nil {
		b.Fatalf("Start() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Process(ctx)
	}
}

func BenchmarkFeed_HealthTransitions(b *testing.B) {
	ch := make(chan []byte, b.N*2)
	for i := 0; i < b.N; i++ {
		ch <- []byte(`{"kind": "launch"}`)           // Unknown kind -> Degraded
		ch <- []byte(`{"kind": "add", "amount": 1}`) // Valid -> Healthy
	}

	store := reflux.New(0, refluxtest.CounterReducer)
	f := reflux.NewFeed(refluxtest.CounterRegistry(), reflux.NewSyncChannelWatcher(ch)).SyncMode()

	ctx := context.Background()
	if err := f.Start(ctx, store); err != nil {
		b.Fatalf("Start() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Process(ctx)
		f.Process(ctx)
	}
}

func BenchmarkRegistry_Decode(b *testing.B) {
	registry := refluxtest.CounterRegistry()
	data := []byte(`{"kind": "add", "amount": 5}`)
	codec := reflux.JSONCodec{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := registry.Decode(codec, data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChannelWatcher_Forwarding(b *testing.B) {
	source := make(chan []byte, b.N)
	for i := 0; i < b.N; i++ {
		source <- []byte(fmt.Sprintf(`{"kind": "add", "amount": %d}`, i))
	}

	watcher := reflux.NewChannelWatcher(source)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := watcher.Watch(ctx)
	if err != nil {
		b.Fatalf("Watch() error = %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		<-out
	}
}

func BenchmarkEpic_RoundTrip(b *testing.B) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{}, 1)
	echo := func(ctx context.Context, _ func() int, actions <-chan reflux.Action) <-chan reflux.Action {
		return reflux.FlatMap(ctx, reflux.OfType[refluxtest.Add](ctx, actions), func(refluxtest.Add) []reflux.Action {
			done <- struct{}{}
			return nil
		})
	}

	store := reflux.New(0, refluxtest.CounterReducer, reflux.EpicMiddleware(ctx, echo))
	action := refluxtest.Add{Amount: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.Dispatch(action)
		<-done
	}
}
