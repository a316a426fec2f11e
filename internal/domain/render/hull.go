package render

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/okian/geocluster/internal/domain/record"
)

// ConvexHull returns the convex hull of points with Andrew's monotone chain.
//
// Points are treated as planar (x=longitude, y=latitude). The hull is returned
// counter-clockwise without repeating the first vertex. ok is false when there
// are fewer than 3 distinct points or when all points are collinear.
func ConvexHull(points []record.Point) (hull []orb.Point, ok bool) {
	pts := make([]orb.Point, 0, len(points))
	for _, p := range points {
		pts = append(pts, orb.Point{p.Lng, p.Lat})
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})
	pts = dedupeSorted(pts)
	if len(pts) < 3 {
		return nil, false
	}

	lower := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	upper := make([]orb.Point, 0, len(pts))
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// each chain ends where the other begins
	hull = append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil, false
	}
	return hull, true
}

// cross is the z component of (a-o) x (b-o); positive for a counter-clockwise turn.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func dedupeSorted(pts []orb.Point) []orb.Point {
	if len(pts) == 0 {
		return pts
	}
	out := pts[:1]
	for _, p := range pts[1:] {
		if !p.Equal(out[len(out)-1]) {
			out = append(out, p)
		}
	}
	return out
}

// closeRing repeats the first vertex at the end, as GeoJSON requires.
func closeRing(hull []orb.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(hull)+1)
	ring = append(ring, hull...)
	return append(ring, hull[0])
}
