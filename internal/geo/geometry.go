package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	MinRadiusMeters = 50.0
	MaxRadiusMeters = 200000.0

	// baseRadiusMeters is the search radius at baseZoom.
	baseRadiusMeters = 5000.0
	baseZoom         = 12

	metersPerDegreeLat = 111320.0

	// poleLonDelta replaces the longitude delta when cos(lat) collapses to zero.
	poleLonDelta = 0.01
	poleEpsilon  = 1e-6
)

// SearchArea is the region queried for one fetch. It is derived on every fetch and never cached.
type SearchArea struct {
	RadiusMeters float64
	Bound        orb.Bound
}

// ComputeRadius maps a zoom level to a search radius: 5 km at zoom 12, doubling per zoom level out
// and halving per level in, clamped to [MinRadiusMeters, MaxRadiusMeters].
func ComputeRadius(zoom int) float64 {
	meters := baseRadiusMeters * math.Pow(2, float64(baseZoom-zoom))
	return math.Max(MinRadiusMeters, math.Min(meters, MaxRadiusMeters))
}

// ComputeBBox converts a radius around center into a lat/lon box using an equirectangular
// approximation. It always returns a finite box.
func ComputeBBox(center orb.Point, radiusMeters float64) orb.Bound {
	lat, lon := center.Lat(), center.Lon()

	deltaLat := radiusMeters / metersPerDegreeLat
	metersPerDegreeLon := metersPerDegreeLat * math.Cos(lat*math.Pi/180)

	deltaLon := poleLonDelta
	if math.Abs(metersPerDegreeLon) > poleEpsilon {
		deltaLon = radiusMeters / metersPerDegreeLon
	}

	return orb.Bound{
		Min: orb.Point{lon - deltaLon, lat - deltaLat},
		Max: orb.Point{lon + deltaLon, lat + deltaLat},
	}
}

// SearchAreaFor derives the search area for a viewport center and zoom.
func SearchAreaFor(center orb.Point, zoom int) SearchArea {
	r := ComputeRadius(zoom)
	return SearchArea{RadiusMeters: r, Bound: ComputeBBox(center, r)}
}
