package markers

import (
	"math"

	"github.com/paulmach/orb"

	"wikicoord/core-go/internal/geo"
)

// PositionEpsilon is the per-axis movement, in degrees, below which a position update is skipped.
const PositionEpsilon = 1e-6

// Result summarizes one Apply call.
type Result struct {
	Created int
	Updated int
	Moved   int
	Total   int
}

// Reconciler merges fetched items into the marker store: create on first sighting, update in place
// afterwards, never delete.
type Reconciler struct {
	store      *Store
	renderer   Renderer
	visibility *Visibility
}

func NewReconciler(store *Store, renderer Renderer, visibility *Visibility) *Reconciler {
	return &Reconciler{store: store, renderer: renderer, visibility: visibility}
}

// Apply merges items in order. New markers take the visual for the zoom of the last visibility
// refresh, read under the same lock that refresh holds.
func (r *Reconciler) Apply(items []geo.Item) Result {
	var res Result

	r.store.update(func(byID map[string]*Record, insert func(*Record)) {
		visual := r.visibility.Visual(r.store.zoom)
		for _, it := range items {
			if it.ID == "" {
				continue
			}
			existing, ok := byID[it.ID]
			if !ok {
				rec := &Record{ID: it.ID, Label: it.Label, Position: it.Position, Visual: visual}
				if r.renderer != nil {
					rec.handle = r.renderer.Create(it.ID, it.Position, it.Label, visual)
				}
				insert(rec)
				res.Created++
				continue
			}

			if existing.Label != it.Label {
				existing.Label = it.Label
				if existing.handle != nil {
					existing.handle.SetVisual(existing.Visual, it.Label)
				}
			}
			res.Updated++
			if moved(existing.Position, it.Position) {
				existing.Position = it.Position
				if existing.handle != nil {
					existing.handle.SetPosition(it.Position)
				}
				res.Moved++
			}
		}
		res.Total = len(byID)
	})
	return res
}

func moved(a, b orb.Point) bool {
	return math.Abs(a.Lat()-b.Lat()) > PositionEpsilon || math.Abs(a.Lon()-b.Lon()) > PositionEpsilon
}
