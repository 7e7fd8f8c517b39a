package markers

import (
	"sync"

	"github.com/paulmach/orb"
)

// Record is the durable state for one rendered entity.
type Record struct {
	ID       string
	Label    string
	Position orb.Point
	Visual   Visual
	handle   Handle
}

// Store is the identity-keyed marker set. Records are never removed.
type Store struct {
	mu    sync.Mutex
	byID  map[string]*Record
	order []string
	// zoom is the map zoom of the last visibility refresh.
	zoom int
}

func NewStore() *Store {
	return &Store{byID: make(map[string]*Record)}
}

// Len returns the number of markers.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Zoom returns the zoom of the last visibility refresh.
func (s *Store) Zoom() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Snapshot returns copies of all records in creation order.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// update runs fn with exclusive access to the records and the refresh zoom.
func (s *Store) update(fn func(byID map[string]*Record, insert func(*Record))) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.byID, func(r *Record) {
		s.byID[r.ID] = r
		s.order = append(s.order, r.ID)
	})
}
