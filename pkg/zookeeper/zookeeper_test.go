package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/zoobzio/reflux"
)

func setupZookeeper(t *testing.T) *zk.Conn {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "zookeeper:3.9",
			ExposedPorts: []string{"2181/tcp"},
			WaitingFor:   wait.ForListeningPort("2181/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start zookeeper container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get host: %v", err)
	}

	port, err := container.MappedPort(ctx, "2181/tcp")
	if err != nil {
		t.Fatalf("failed to get port: %v", err)
	}

	conn, _, err := zk.Connect([]string{host + ":" + port.Port()}, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}

func createParent(t *testing.T, conn *zk.Conn, path string) {
	t.Helper()
	_, err := conn.Create(path, nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		t.Fatalf("failed to create parent: %v", err)
	}
}

func appendAction(t *testing.T, conn *zk.Conn, path, value string) {
	t.Helper()
	if _, err := Append(conn, path, []byte(value)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
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

func TestWatcher_EmitsAppendedInOrder(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createParent(t, conn, "/actions")

	ch, err := New(conn, "/actions").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		appendAction(t, conn, "/actions", fmt.Sprintf("a%d", i))
	}

	for i := 0; i < 3; i++ {
		if got := receive(t, ch); got != fmt.Sprintf("a%d", i) {
			t.Errorf("expected a%d, got %s", i, got)
		}
	}
}

func TestWatcher_SkipsExistingWithoutReplay(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createParent(t, conn, "/actions")
	appendAction(t, conn, "/actions", "old")

	ch, err := New(conn, "/actions").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	appendAction(t, conn, "/actions", "new")

	if got := receive(t, ch); got != "new" {
		t.Errorf("expected new, got %s", got)
	}
}

func TestWatcher_Replay(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createParent(t, conn, "/actions")
	appendAction(t, conn, "/actions", "first")
	appendAction(t, conn, "/actions", "second")

	ch, err := New(conn, "/actions", WithReplay()).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if got := receive(t, ch); got != "first" {
		t.Errorf("expected first, got %s", got)
	}
	if got := receive(t, ch); got != "second" {
		t.Errorf("expected second, got %s", got)
	}
}

func TestWatcher_ConsumeDeletesChildren(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createParent(t, conn, "/queue")
	appendAction(t, conn, "/queue", "waiting")

	ch, err := New(conn, "/queue", WithConsume()).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if got := receive(t, ch); got != "waiting" {
		t.Errorf("expected waiting, got %s", got)
	}

	children, _, err := conn.Children("/queue")
	if err != nil {
		t.Fatalf("failed to list children: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("expected consumed child to be deleted, got %v", children)
	}
}

func TestWatcher_CompetingConsumers(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createParent(t, conn, "/queue")

	a, err := New(conn, "/queue", WithConsume()).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	b, err := New(conn, "/queue", WithConsume()).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	const total = 10
	for i := 0; i < total; i++ {
		appendAction(t, conn, "/queue", fmt.Sprintf("job-%d", i))
	}

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
	)
	drain := func(ch <-chan []byte) {
		for v := range ch {
			mu.Lock()
			seen[string(v)]++
			mu.Unlock()
		}
	}
	go drain(a)
	go drain(b)

	deadline := time.Now().Add(10 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == total {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d distinct jobs, got %d", total, n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Give a duplicate delivery time to surface.
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for job, count := range seen {
		if count != 1 {
			t.Errorf("expected %s delivered once, got %d", job, count)
		}
	}
}

func TestWatcher_MissingParent(t *testing.T) {
	conn := setupZookeeper(t)

	_, err := New(conn, "/missing").Watch(context.Background())
	if err == nil {
		t.Fatal("expected error for missing parent")
	}
	if !errors.Is(err, zk.ErrNoNode) {
		t.Errorf("expected ErrNoNode, got %v", err)
	}
}

func TestWatcher_ClosesOnContextCancel(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithCancel(context.Background())

	createParent(t, conn, "/actions")

	ch, err := New(conn, "/actions").Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}

type increment struct {
	Amount int `json:"amount"`
}

func TestWatcher_FeedsStore(t *testing.T) {
	conn := setupZookeeper(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createParent(t, conn, "/counter")
	for i := 1; i <= 4; i++ {
		appendAction(t, conn, "/counter", fmt.Sprintf(`{"kind":"increment","amount":%d}`, i))
	}

	store := reflux.New(0, func(state int, action reflux.Action) int {
		if a, ok := action.(increment); ok {
			return state + a.Amount
		}
		return state
	})

	registry := reflux.NewRegistry()
	reflux.Register[increment](registry, "increment")

	feed := reflux.NewFeed(registry, New(conn, "/counter", WithReplay()))
	if err := feed.Start(ctx, store); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for store.State() != 10 {
		if time.Now().After(deadline) {
			t.Fatalf("expected state 10, got %d", store.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
