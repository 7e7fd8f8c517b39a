package viewport

import (
	"sync"

	"github.com/paulmach/orb"
)

// State is a snapshot of the map widget's view.
type State struct {
	Center orb.Point
	Zoom   int
}

// ChangeFunc is called after the tracked state changes.
type ChangeFunc func(prev, next State)

// Tracker holds the latest viewport reported by the map widget and notifies subscribers on change.
type Tracker struct {
	// notify serializes Set calls so listeners see transitions in the order they were recorded.
	notify    sync.Mutex
	mu        sync.RWMutex
	state     State
	listeners []ChangeFunc
}

func NewTracker(initial State) *Tracker {
	return &Tracker{state: initial}
}

// Current returns the latest viewport state.
func (t *Tracker) Current() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Subscribe registers fn for change events.
func (t *Tracker) Subscribe(fn ChangeFunc) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Set records a move/zoom event. Listeners run synchronously, outside the state lock, even when the
// state is unchanged, since the widget reports moveend/zoomend and both reschedule a fetch.
// Concurrent Set calls notify in the order their states were recorded. Listeners must not call Set.
func (t *Tracker) Set(next State) {
	t.notify.Lock()
	defer t.notify.Unlock()

	t.mu.Lock()
	prev := t.state
	t.state = next
	listeners := append([]ChangeFunc(nil), t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next)
	}
}
