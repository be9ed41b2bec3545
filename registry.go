package reflux

import (
	"fmt"
	"sort"
	"sync"
)

// Decoder turns one feed message into an action.
type Decoder interface {
	Decode(codec Codec, data []byte) (Action, error)
}

// Registry is a Decoder that maps a message's kind to a Go action type.
//
// Each message is a single object whose "kind" field names the action. The
// whole object is then decoded into the type registered for that kind, so
// the remaining fields populate the action:
//
//	{"kind": "increment", "amount": 5}
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]func(Codec, []byte) (Action, error)
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]func(Codec, []byte) (Action, error))}
}

// Register binds kind to action type A. Messages of that kind decode into a
// value of A. Registering a kind again replaces the earlier binding.
//
// Example:
//
//	type Increment struct {
//	    Amount int `json:"amount" yaml:"amount"`
//	}
//
//	registry := reflux.NewRegistry()
//	reflux.Register[Increment](registry, "increment")
func Register[A any](r *Registry, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = func(codec Codec, data []byte) (Action, error) {
		var action A
		if err := codec.Unmarshal(data, &action); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return action, nil
	}
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Decode reads the message kind and decodes data into the registered type.
// It returns ErrMissingKind or ErrUnknownKind when the kind cannot be resolved.
func (r *Registry) Decode(codec Codec, data []byte) (Action, error) {
	var head struct {
		Kind string `json:"kind" yaml:"kind"`
	}
	if err := codec.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("read kind: %w", err)
	}
	if head.Kind == "" {
		return nil, ErrMissingKind
	}

	r.mu.RLock()
	decode, ok := r.kinds[head.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head.Kind)
	}
	return decode(codec, data)
}

var _ Decoder = (*Registry)(nil)
