package reflux

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Record captures one action as it passed through a Recorder.
type Record[S any] struct {
	// Action is the action the recorder observed.
	Action Action

	// Previous is the state read before the action continued down the chain.
	Previous S

	// Current is the state read after the rest of the chain returned.
	// When the action was cancelled downstream it equals Previous.
	Current S

	// At is when the action reached the recorder.
	At time.Time
}

// Recorder is middleware that keeps a history of dispatched actions.
// Under concurrent dispatch Previous and Current may include the effect of
// other actions reduced in between.
type Recorder[S any] struct {
	clock clockz.Clock

	mu      sync.Mutex
	limited *ring[Record[S]]
	records []Record[S]
}

// NewRecorder creates a Recorder with unbounded history.
func NewRecorder[S any]() *Recorder[S] {
	return &Recorder[S]{clock: clockz.RealClock}
}

// Limit keeps only the n most recent records. Zero or less means unbounded.
// Must be called before the recorder is installed.
func (r *Recorder[S]) Limit(n int) *Recorder[S] {
	r.limited = newRing[Record[S]](n)
	return r
}

// Clock sets the clock used to timestamp records.
// Must be called before the recorder is installed.
func (r *Recorder[S]) Clock(clock clockz.Clock) *Recorder[S] {
	r.clock = clock
	return r
}

// Middleware returns the middleware that feeds this recorder.
func (r *Recorder[S]) Middleware() Middleware[S] {
	return func(getState func() S, _ Dispatch) func(Dispatch) Dispatch {
		return func(next Dispatch) Dispatch {
			return func(action Action) {
				rec := Record[S]{
					Action:   action,
					Previous: getState(),
					At:       r.clock.Now(),
				}
				next(action)
				rec.Current = getState()
				r.add(rec)
			}
		}
	}
}

// Records returns the recorded history, oldest first.
func (r *Recorder[S]) Records() []Record[S] {
	if r.limited != nil {
		return r.limited.all()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record[S], len(r.records))
	copy(out, r.records)
	return out
}

// Actions returns the recorded actions, oldest first.
func (r *Recorder[S]) Actions() []Action {
	records := r.Records()
	actions := make([]Action, len(records))
	for i, rec := range records {
		actions[i] = rec.Action
	}
	return actions
}

// Len returns the number of records held.
func (r *Recorder[S]) Len() int {
	if r.limited != nil {
		return r.limited.len()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Reset discards the history.
func (r *Recorder[S]) Reset() {
	if r.limited != nil {
		r.limited.clear()
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

func (r *Recorder[S]) add(rec Record[S]) {
	if r.limited != nil {
		r.limited.push(rec)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}
