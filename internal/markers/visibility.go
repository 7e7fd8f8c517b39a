package markers

import "sync/atomic"

// DefaultLabelZoomThreshold is the zoom from which markers show inline labels.
const DefaultLabelZoomThreshold = 16

// ShowLabel reports whether markers render labeled at currentZoom.
func ShowLabel(labelZoomThreshold, currentZoom int) bool {
	return currentZoom >= labelZoomThreshold
}

// VisualFor returns the visual a marker should use at currentZoom.
func VisualFor(labelZoomThreshold, currentZoom int) Visual {
	if ShowLabel(labelZoomThreshold, currentZoom) {
		return VisualLabeled
	}
	return VisualPin
}

// Visibility switches every marker between labeled and plain pins based on zoom.
type Visibility struct {
	store     *Store
	threshold atomic.Int64
}

func NewVisibility(store *Store, labelZoomThreshold int) *Visibility {
	v := &Visibility{store: store}
	v.SetThreshold(labelZoomThreshold)
	return v
}

// Threshold returns the current label zoom threshold.
func (v *Visibility) Threshold() int {
	return int(v.threshold.Load())
}

// SetThreshold updates the label zoom threshold. A non-positive value restores the default.
func (v *Visibility) SetThreshold(t int) {
	if t <= 0 {
		t = DefaultLabelZoomThreshold
	}
	v.threshold.Store(int64(t))
}

// Visual returns the visual markers use at currentZoom under the current threshold.
func (v *Visibility) Visual(currentZoom int) Visual {
	return VisualFor(v.Threshold(), currentZoom)
}

// Refresh records currentZoom as the map zoom, recomputes the visual of every marker for it and
// returns how many changed. Markers created later take their visual from the recorded zoom.
func (v *Visibility) Refresh(currentZoom int) int {
	changed := 0
	v.store.update(func(byID map[string]*Record, _ func(*Record)) {
		v.store.zoom = currentZoom
		want := v.Visual(currentZoom)
		for _, r := range byID {
			if r.handle != nil {
				r.handle.SetVisual(want, r.Label)
			}
			if r.Visual != want {
				changed++
			}
			r.Visual = want
		}
	})
	return changed
}
