package status

import (
	"sync"
	"time"
)

// State is the coarse fetch state shown next to the status message.
type State string

const (
	StateIdle     State = "idle"
	StatePaused   State = "paused"
	StateFetching State = "fetching"
	StateError    State = "error"
)

type Snapshot struct {
	State     State     `json:"state"`
	Message   string    `json:"message"`
	Token     uint64    `json:"token,omitempty"`
	Items     int       `json:"items"`
	Zoom      int       `json:"zoom"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Board holds the latest status line. It is safe for concurrent use.
type Board struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

func NewBoard() *Board {
	b := &Board{now: time.Now}
	b.snap = Snapshot{State: StateIdle, Message: "ready", UpdatedAt: b.now()}
	return b
}

// Set replaces the state and message, keeping the last fetch figures.
func (b *Board) Set(state State, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.State = state
	b.snap.Message = msg
	b.snap.UpdatedAt = b.now()
}

// SetMessage replaces the message only.
func (b *Board) SetMessage(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.Message = msg
	b.snap.UpdatedAt = b.now()
}

// Loaded records a successful fetch.
func (b *Board) Loaded(token uint64, items, zoom int, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap = Snapshot{State: StateIdle, Message: msg, Token: token, Items: items, Zoom: zoom, UpdatedAt: b.now()}
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
