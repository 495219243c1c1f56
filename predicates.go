package geojoin

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// Planar spatial predicates and coordinate transforms. Predicates are
// evaluated naively against the geometry's vertices and edges; there is
// no indexing or acceleration here.

// Transform re-expresses g in the target coordinate reference system and
// returns a fresh copy; g itself is never mutated. Matching codes (or
// two datasets that both carry no CRS) transform as identity. Supported
// pairs are EPSG:4326 and EPSG:3857 in either direction.
func Transform(g orb.Geometry, from, to *CRS) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}
	fromCode, toCode := crsCode(from), crsCode(to)
	if fromCode == toCode {
		return orb.Clone(g), nil
	}
	switch {
	case fromCode == 4326 && toCode == 3857:
		return project.Geometry(orb.Clone(g), project.WGS84.ToMercator), nil
	case fromCode == 3857 && toCode == 4326:
		return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84), nil
	}
	return nil, fmt.Errorf("%w: no transform from EPSG:%d to EPSG:%d",
		ErrSpatialReference, fromCode, toCode)
}

func crsCode(c *CRS) int {
	if c == nil {
		return 0
	}
	return c.Code
}

// MarshalWKT returns the well-known text form of g.
func MarshalWKT(g orb.Geometry) string {
	return wkt.MarshalString(g)
}

// UnmarshalWKT parses well-known text into an orb geometry.
func UnmarshalWKT(s string) (orb.Geometry, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return g, nil
}

// Within reports whether a lies inside b: every vertex of a is contained
// in b and no edge of a strictly crosses an edge of b. Both geometries
// must be in the same coordinate reference system.
func Within(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	verts := vertices(a)
	if len(verts) == 0 {
		return false
	}
	for _, p := range verts {
		if !containsPoint(b, p) {
			return false
		}
	}

	// An edge of a leaving and re-entering b strictly crosses b's
	// boundary somewhere.
	edgesB := edges(b)
	for _, ea := range edges(a) {
		for _, eb := range edgesB {
			if strictCross(ea, eb) {
				return false
			}
		}
	}
	return true
}

// Intersects reports whether a and b share any point: a vertex of one
// contained in the other, or a pair of touching edges. Both geometries
// must be in the same coordinate reference system.
func Intersects(a, b orb.Geometry) bool {
	if a == nil || b == nil {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}

	for _, p := range vertices(a) {
		if containsPoint(b, p) {
			return true
		}
	}
	for _, p := range vertices(b) {
		if containsPoint(a, p) {
			return true
		}
	}

	edgesB := edges(b)
	for _, ea := range edges(a) {
		for _, eb := range edgesB {
			if edgesTouch(ea, eb) {
				return true
			}
		}
	}
	return false
}

// containsPoint reports whether p lies inside or on g.
func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch v := g.(type) {
	case orb.Point:
		return v.Equal(p)
	case orb.MultiPoint:
		for _, q := range v {
			if q.Equal(p) {
				return true
			}
		}
	case orb.LineString:
		return pointOnRun(p, v)
	case orb.MultiLineString:
		for _, ls := range v {
			if pointOnRun(p, ls) {
				return true
			}
		}
	case orb.Ring:
		return planar.RingContains(v, p)
	case orb.Polygon:
		return planar.PolygonContains(v, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p)
	case orb.Bound:
		return v.Contains(p)
	case orb.Collection:
		for _, child := range v {
			if containsPoint(child, p) {
				return true
			}
		}
	}
	return false
}

// vertices returns every coordinate of g.
func vertices(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return v
	case orb.LineString:
		return v
	case orb.MultiLineString:
		var pts []orb.Point
		for _, ls := range v {
			pts = append(pts, ls...)
		}
		return pts
	case orb.Ring:
		return v
	case orb.Polygon:
		var pts []orb.Point
		for _, r := range v {
			pts = append(pts, r...)
		}
		return pts
	case orb.MultiPolygon:
		var pts []orb.Point
		for _, poly := range v {
			pts = append(pts, vertices(poly)...)
		}
		return pts
	case orb.Bound:
		return vertices(boundToPolygon(v))
	case orb.Collection:
		var pts []orb.Point
		for _, child := range v {
			pts = append(pts, vertices(child)...)
		}
		return pts
	}
	return nil
}

type edge [2]orb.Point

// edges returns every line segment of g: consecutive vertex pairs of
// line strings and rings. Point geometries have none.
func edges(g orb.Geometry) []edge {
	switch v := g.(type) {
	case orb.LineString:
		return runEdges(v)
	case orb.MultiLineString:
		var es []edge
		for _, ls := range v {
			es = append(es, runEdges(ls)...)
		}
		return es
	case orb.Ring:
		return runEdges(v)
	case orb.Polygon:
		var es []edge
		for _, r := range v {
			es = append(es, runEdges(r)...)
		}
		return es
	case orb.MultiPolygon:
		var es []edge
		for _, poly := range v {
			es = append(es, edges(poly)...)
		}
		return es
	case orb.Bound:
		return edges(boundToPolygon(v))
	case orb.Collection:
		var es []edge
		for _, child := range v {
			es = append(es, edges(child)...)
		}
		return es
	}
	return nil
}

func runEdges(run []orb.Point) []edge {
	if len(run) < 2 {
		return nil
	}
	es := make([]edge, 0, len(run)-1)
	for i := 1; i < len(run); i++ {
		es = append(es, edge{run[i-1], run[i]})
	}
	return es
}

// cross returns the z of (a-o) x (b-o): positive for a left turn,
// negative for a right turn, zero for collinear points.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// onSegment reports whether p lies on the segment a-b, endpoints included.
func onSegment(p, a, b orb.Point) bool {
	if cross(a, b, p) != 0 {
		return false
	}
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

// pointOnRun reports whether p lies on any segment of the run.
func pointOnRun(p orb.Point, run []orb.Point) bool {
	if len(run) == 1 {
		return run[0].Equal(p)
	}
	for i := 1; i < len(run); i++ {
		if onSegment(p, run[i-1], run[i]) {
			return true
		}
	}
	return false
}

// strictCross reports whether two edges cross at a point interior to
// both; touching endpoints do not count.
func strictCross(a, b edge) bool {
	d1 := cross(b[0], b[1], a[0])
	d2 := cross(b[0], b[1], a[1])
	d3 := cross(a[0], a[1], b[0])
	d4 := cross(a[0], a[1], b[1])
	return d1*d2 < 0 && d3*d4 < 0
}

// edgesTouch reports whether two edges share any point, endpoints and
// collinear overlap included.
func edgesTouch(a, b edge) bool {
	if strictCross(a, b) {
		return true
	}
	return onSegment(a[0], b[0], b[1]) || onSegment(a[1], b[0], b[1]) ||
		onSegment(b[0], a[0], a[1]) || onSegment(b[1], a[0], a[1])
}
