package render

import (
	"github.com/paulmach/orb"

	"github.com/okian/geocluster/internal/domain/record"
)

// DefaultMaxZoom caps how far the view zooms in when fitting tight bounds.
const DefaultMaxZoom = 15

// LatLng is a [latitude, longitude] pair, the order map clients expect.
type LatLng [2]float64

// Viewport is the bounding box a map view should fit.
type Viewport struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
	MaxZoom   int    `json:"max_zoom"`
	// Empty reports that no points were given and the box is the (0,0) default.
	Empty bool `json:"empty,omitempty"`
}

// FitViewport returns the tightest box covering points. With no points both
// corners are (0,0). A non-positive maxZoom selects DefaultMaxZoom.
func FitViewport(points []record.Point, maxZoom int) Viewport {
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}
	if len(points) == 0 {
		return Viewport{MaxZoom: maxZoom, Empty: true}
	}
	mp := make(orb.MultiPoint, 0, len(points))
	for _, p := range points {
		mp = append(mp, orb.Point{p.Lng, p.Lat})
	}
	b := mp.Bound()
	return Viewport{
		SouthWest: LatLng{b.Min.Lat(), b.Min.Lon()},
		NorthEast: LatLng{b.Max.Lat(), b.Max.Lon()},
		MaxZoom:   maxZoom,
	}
}

// Bound returns the viewport as an orb bound (x=lng, y=lat).
func (v Viewport) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{v.SouthWest[1], v.SouthWest[0]},
		Max: orb.Point{v.NorthEast[1], v.NorthEast[0]},
	}
}

// Contains reports whether p lies inside or on the viewport edge.
func (v Viewport) Contains(p record.Point) bool {
	return v.Bound().Contains(orb.Point{p.Lng, p.Lat})
}
