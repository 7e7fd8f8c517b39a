package render

import (
	"html"
	"sync"

	"github.com/paulmach/orb"

	"wikicoord/core-go/internal/markers"
)

// MarkerView is what the map widget draws for one marker.
type MarkerView struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Visual  string  `json:"visual"`
	HTML    string  `json:"html,omitempty"`
	URL     string  `json:"url,omitempty"`
	Version int     `json:"version"`
}

// Layer is an in-memory marker layer. The widget polls Snapshot and redraws markers whose version
// changed.
type Layer struct {
	mu       sync.RWMutex
	pageBase string
	views    map[string]*MarkerView
	order    []string
}

// NewLayer returns an empty layer. pageBase prefixes entity ids to build marker links.
func NewLayer(pageBase string) *Layer {
	return &Layer{pageBase: pageBase, views: make(map[string]*MarkerView)}
}

func (l *Layer) Create(id string, pos orb.Point, label string, v markers.Visual) markers.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	view, ok := l.views[id]
	if !ok {
		view = &MarkerView{ID: id}
		l.views[id] = view
		l.order = append(l.order, id)
	}
	view.Lat, view.Lon = pos.Lat(), pos.Lon()
	if l.pageBase != "" {
		view.URL = l.pageBase + id
	}
	setVisual(view, v, label)
	view.Version++
	return &handle{layer: l, id: id}
}

// Snapshot returns all markers in creation order.
func (l *Layer) Snapshot() []MarkerView {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]MarkerView, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.views[id])
	}
	return out
}

// Len returns the number of markers on the layer.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

type handle struct {
	layer *Layer
	id    string
}

func (h *handle) SetPosition(pos orb.Point) {
	h.layer.mu.Lock()
	defer h.layer.mu.Unlock()
	if view, ok := h.layer.views[h.id]; ok {
		view.Lat, view.Lon = pos.Lat(), pos.Lon()
		view.Version++
	}
}

func (h *handle) SetVisual(v markers.Visual, label string) {
	h.layer.mu.Lock()
	defer h.layer.mu.Unlock()
	view, ok := h.layer.views[h.id]
	if !ok {
		return
	}
	before := *view
	setVisual(view, v, label)
	if before.Visual != view.Visual || before.Label != view.Label {
		view.Version++
	}
}

// setVisual applies v. A marker without a label has nothing to show inline and stays a plain pin.
func setVisual(view *MarkerView, v markers.Visual, label string) {
	if label == "" {
		v = markers.VisualPin
	}
	view.Label = label
	view.Visual = v.String()
	view.HTML = ""
	if v == markers.VisualLabeled {
		view.HTML = LabelHTML(label)
	}
}

// LabelHTML is the markup of a labeled pin with label escaped.
func LabelHTML(label string) string {
	return `<div class="wd-label-container"><span class="wd-pin"></span><span class="wd-marker-label">` +
		html.EscapeString(label) + `</span></div>`
}
