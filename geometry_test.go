package geojoin

import (
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
)

func TestFGBGeometryType(t *testing.T) {
	cases := []struct {
		geom orb.Geometry
		want flattypes.GeometryType
	}{
		{orb.Point{1, 2}, flattypes.GeometryTypePoint},
		{orb.LineString{{0, 0}, {1, 1}}, flattypes.GeometryTypeLineString},
		{orb.Polygon{}, flattypes.GeometryTypePolygon},
		{orb.Ring{}, flattypes.GeometryTypePolygon},
		{orb.Bound{}, flattypes.GeometryTypePolygon},
		{orb.MultiPolygon{}, flattypes.GeometryTypeMultiPolygon},
		{orb.Collection{}, flattypes.GeometryTypeGeometryCollection},
	}
	for _, c := range cases {
		if got := fgbGeometryType(c.geom); got != c.want {
			t.Errorf("%T: expected %v, got %v", c.geom, c.want, got)
		}
	}
}

func TestRunsToXYEnds(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {4, 0}, {4, 4}, {0, 0}},
		{{1, 1}, {2, 1}, {1, 2}, {1, 1}},
	}
	xy, ends := runsToXYEnds(poly)

	if len(xy) != 16 {
		t.Fatalf("expected 16 coordinates, got %d", len(xy))
	}
	if len(ends) != 2 || ends[0] != 4 || ends[1] != 8 {
		t.Errorf("expected cumulative ends [4 8], got %v", ends)
	}
	if xy[0] != 0 || xy[8] != 1 || xy[9] != 1 {
		t.Errorf("coordinate layout wrong: %v", xy)
	}
}

func TestBoundToPolygon(t *testing.T) {
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 3}}
	poly := boundToPolygon(b)
	if len(poly) != 1 || len(poly[0]) != 5 {
		t.Fatalf("expected a closed 5-point ring, got %v", poly)
	}
	if !poly[0][0].Equal(poly[0][4]) {
		t.Error("ring is not closed")
	}
	if !poly.Bound().Equal(b) {
		t.Errorf("polygon bound %v does not match %v", poly.Bound(), b)
	}
}

func TestDatasetGeometryType_Mixed(t *testing.T) {
	features := []*Feature{
		{Geometry: orb.Point{1, 1}},
		{Geometry: nil},
		{Geometry: orb.Point{2, 2}},
	}
	if got := datasetGeometryType(features); got != flattypes.GeometryTypePoint {
		t.Errorf("uniform points: expected Point, got %v", got)
	}

	features = append(features, &Feature{Geometry: orb.LineString{{0, 0}, {1, 1}}})
	if got := datasetGeometryType(features); got != flattypes.GeometryTypeUnknown {
		t.Errorf("mixed types: expected Unknown, got %v", got)
	}
}
