// Package render turns labeled points into map geometry: per-cluster convex
// hulls and colors, a fitted viewport and a GeoJSON rendering of the result.
package render

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/okian/geocluster/internal/domain/record"
)

// DefaultFillOpacity is the polygon fill opacity used by map clients.
const DefaultFillOpacity = 0.2

// ClusterGeometry describes one non-empty cluster.
type ClusterGeometry struct {
	Label int    `json:"cluster"`
	Color string `json:"color"`
	Count int    `json:"count"`
	// Polygon is the open counter-clockwise hull; nil when the cluster is degenerate.
	Polygon []LatLng `json:"polygon,omitempty"`

	hull []orb.Point
}

// Payload is the render output for a labeled batch.
type Payload struct {
	Clusters []ClusterGeometry `json:"clusters"`
	Viewport Viewport          `json:"viewport"`
}

// HullCount returns the number of clusters that produced a polygon.
func (p Payload) HullCount() int {
	n := 0
	for _, c := range p.Clusters {
		if c.Polygon != nil {
			n++
		}
	}
	return n
}

// Option configures a Builder.
type Option func(*Builder)

// WithPalette sets the cluster palette.
func WithPalette(p Palette) Option {
	return func(b *Builder) {
		if p.Size() > 0 {
			b.palette = p
		}
	}
}

// WithMaxZoom sets the viewport zoom cap.
func WithMaxZoom(z int) Option {
	return func(b *Builder) {
		if z > 0 {
			b.maxZoom = z
		}
	}
}

// WithFillOpacity sets the polygon fill opacity written to GeoJSON.
func WithFillOpacity(o float64) Option {
	return func(b *Builder) {
		if o >= 0 && o <= 1 {
			b.fillOpacity = o
		}
	}
}

// Builder assembles render payloads.
type Builder struct {
	palette     Palette
	maxZoom     int
	fillOpacity float64
}

// NewBuilder returns a Builder with the default palette and zoom cap.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		palette:     DefaultPalette(),
		maxZoom:     DefaultMaxZoom,
		fillOpacity: DefaultFillOpacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Palette returns the builder's palette.
func (b *Builder) Palette() Palette { return b.palette }

// Build groups points by label and produces one geometry per non-empty
// cluster, ordered by label, plus the viewport over all points.
func (b *Builder) Build(points []record.Point, labels []int) (Payload, error) {
	if len(points) != len(labels) {
		return Payload{}, fmt.Errorf("%w: %d points, %d labels", ErrLengthMismatch, len(points), len(labels))
	}
	groups := make(map[int][]record.Point)
	for i, l := range labels {
		groups[l] = append(groups[l], points[i])
	}
	order := make([]int, 0, len(groups))
	for l := range groups {
		order = append(order, l)
	}
	sort.Ints(order)

	clusters := make([]ClusterGeometry, 0, len(order))
	for _, l := range order {
		members := groups[l]
		g := ClusterGeometry{
			Label: l,
			Color: b.palette.Color(l),
			Count: len(members),
		}
		if hull, ok := ConvexHull(members); ok {
			g.hull = hull
			g.Polygon = make([]LatLng, len(hull))
			for i, p := range hull {
				g.Polygon[i] = LatLng{p.Lat(), p.Lon()}
			}
		}
		clusters = append(clusters, g)
	}
	return Payload{
		Clusters: clusters,
		Viewport: FitViewport(points, b.maxZoom),
	}, nil
}

// FeatureCollection renders records and payload as GeoJSON: one point feature
// per record carrying its popup fields, then one polygon feature per hull.
func (b *Builder) FeatureCollection(records []record.Record, points []record.Point, labels []int, payload Payload) (*geojson.FeatureCollection, error) {
	if len(records) != len(points) || len(points) != len(labels) {
		return nil, fmt.Errorf("%w: %d records, %d points, %d labels",
			ErrLengthMismatch, len(records), len(points), len(labels))
	}
	fc := geojson.NewFeatureCollection()
	for i, p := range points {
		f := geojson.NewFeature(orb.Point{p.Lng, p.Lat})
		f.Properties["cluster"] = labels[i]
		f.Properties["color"] = b.palette.Color(labels[i])
		f.Properties["popup"] = record.PopupFields(records[i])
		fc.Append(f)
	}
	for _, c := range payload.Clusters {
		hull := c.hull
		if hull == nil && len(c.Polygon) >= 3 {
			hull = make([]orb.Point, len(c.Polygon))
			for i, ll := range c.Polygon {
				hull[i] = orb.Point{ll[1], ll[0]}
			}
		}
		if hull == nil {
			continue
		}
		f := geojson.NewFeature(orb.Polygon{closeRing(hull)})
		f.Properties["cluster"] = c.Label
		f.Properties["color"] = c.Color
		f.Properties["count"] = c.Count
		f.Properties["fill_opacity"] = b.fillOpacity
		fc.Append(f)
	}
	fc.BBox = geojson.NewBBox(payload.Viewport.Bound())
	return fc, nil
}
