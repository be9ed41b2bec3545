package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/zoobzio/reflux"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})
	t.Cleanup(func() {
		client.Close()
	})

	return client
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return string(v)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	return ""
}

func TestWatcher_EmitsPublishedMessages(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch, err := New(client, "counter.actions").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	messages := []string{
		`{"kind":"increment","amount":5}`,
		`{"kind":"decrement","amount":3}`,
	}
	for _, m := range messages {
		if err := client.Publish(ctx, "counter.actions", m).Err(); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}
	}

	for _, expected := range messages {
		if got := receive(t, ch); got != expected {
			t.Errorf("expected %s, got %s", expected, got)
		}
	}
}

func TestWatcher_IgnoresOtherChannels(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch, err := New(client, "counter.actions").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := client.Publish(ctx, "other", `{"kind":"reset"}`).Err(); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}
	if err := client.Publish(ctx, "counter.actions", `{"kind":"increment","amount":1}`).Err(); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	if got := receive(t, ch); got != `{"kind":"increment","amount":1}` {
		t.Errorf("expected increment message, got %s", got)
	}
}

func TestWatcher_Pattern(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch, err := New(client, "cart.*", WithPattern()).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := client.Publish(ctx, "cart.eu", `{"kind":"reset"}`).Err(); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	if got := receive(t, ch); got != `{"kind":"reset"}` {
		t.Errorf("expected reset message, got %s", got)
	}
}

func TestWatcher_ClosesOnContextCancel(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := New(client, "counter.actions").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for channel close")
	}
}

type increment struct {
	Amount int `json:"amount"`
}

func TestWatcher_FeedsStore(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := reflux.New(0, func(state int, action reflux.Action) int {
		if a, ok := action.(increment); ok {
			return state + a.Amount
		}
		return state
	})

	registry := reflux.NewRegistry()
	reflux.Register[increment](registry, "increment")

	feed := reflux.NewFeed(registry, New(client, "counter.actions"))
	if err := feed.Start(ctx, store); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := client.Publish(ctx, "counter.actions", `{"kind":"increment","amount":2}`).Err(); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for store.State() != 6 {
		if time.Now().After(deadline) {
			t.Fatalf("expected state 6, got %d", store.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatcher_MultipleChannels(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch, err := New(client, "a", WithChannels("b")).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := client.Publish(ctx, "b", `{"kind":"reset"}`).Err(); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	if got := receive(t, ch); got != `{"kind":"reset"}` {
		t.Errorf("expected reset message, got %s", got)
	}
}
