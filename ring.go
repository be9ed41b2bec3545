package reflux

import "sync"

// ring is a thread-safe bounded buffer that keeps the most recent values.
type ring[T any] struct {
	mu     sync.RWMutex
	values []T
	size   int
	head   int
	count  int
}

// newRing creates a ring with the given capacity.
// If size is 0, the ring is disabled and every method is a no-op.
func newRing[T any](size int) *ring[T] {
	if size <= 0 {
		return nil
	}
	return &ring[T]{
		values: make([]T, size),
		size:   size,
	}
}

// push adds a value, overwriting the oldest when full.
func (r *ring[T]) push(v T) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// clear removes all values.
func (r *ring[T]) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.values {
		r.values[i] = zero
	}
	r.head = 0
	r.count = 0
}

// len returns the number of values held.
func (r *ring[T]) len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// all returns all values, oldest first.
func (r *ring[T]) all() []T {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	result := make([]T, r.count)
	start := (r.head - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		result[i] = r.values[(start+i)%r.size]
	}
	return result
}
