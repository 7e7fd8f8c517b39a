package geo

import "github.com/paulmach/orb"

// Item is one geolocated entity returned by a viewport fetch.
type Item struct {
	ID       string
	Label    string
	Position orb.Point
}

// Lat returns the item latitude.
func (i Item) Lat() float64 { return i.Position.Lat() }

// Lon returns the item longitude.
func (i Item) Lon() float64 { return i.Position.Lon() }
