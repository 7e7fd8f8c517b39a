package markers

import "github.com/paulmach/orb"

// Visual is the render mode of a marker.
type Visual int

const (
	// VisualPin is a plain pin.
	VisualPin Visual = iota
	// VisualLabeled is a pin with an inline text label.
	VisualLabeled
)

func (v Visual) String() string {
	switch v {
	case VisualLabeled:
		return "labeled"
	default:
		return "pin"
	}
}

// Renderer creates markers on the map widget.
type Renderer interface {
	Create(id string, pos orb.Point, label string, v Visual) Handle
}

// Handle is the widget-side marker a record owns.
type Handle interface {
	SetPosition(pos orb.Point)
	SetVisual(v Visual, label string)
}
