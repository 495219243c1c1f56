package geojoin

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
)

var square = orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}

func TestWithin_PointInPolygon(t *testing.T) {
	if !Within(orb.Point{5, 5}, square) {
		t.Error("interior point should be within the polygon")
	}
	if Within(orb.Point{20, 20}, square) {
		t.Error("exterior point should not be within the polygon")
	}
}

func TestWithin_PolygonInPolygon(t *testing.T) {
	inner := orb.Polygon{{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}}}
	if !Within(inner, square) {
		t.Error("inner polygon should be within the outer")
	}
	if Within(square, inner) {
		t.Error("outer polygon should not be within the inner")
	}
}

func TestWithin_RespectsHoles(t *testing.T) {
	holed := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}
	if Within(orb.Point{5, 5}, holed) {
		t.Error("point inside the hole should not be within")
	}
	if !Within(orb.Point{2, 2}, holed) {
		t.Error("point between hole and shell should be within")
	}
}

func TestWithin_OverlapIsNotWithin(t *testing.T) {
	shifted := orb.Polygon{{{5, 5}, {15, 5}, {15, 15}, {5, 15}, {5, 5}}}
	if Within(shifted, square) {
		t.Error("partially overlapping polygon is not within")
	}
	if !Intersects(shifted, square) {
		t.Error("partially overlapping polygons intersect")
	}
}

func TestIntersects_Disjoint(t *testing.T) {
	far := orb.Polygon{{{100, 100}, {110, 100}, {110, 110}, {100, 110}, {100, 100}}}
	if Intersects(square, far) {
		t.Error("disjoint polygons should not intersect")
	}
	if Intersects(orb.Point{50, 50}, square) {
		t.Error("distant point should not intersect")
	}
}

func TestIntersects_EdgeCrossWithoutVertexContainment(t *testing.T) {
	// Two crossing strips: no vertex of either lies inside the other.
	horizontal := orb.Polygon{{{-5, 4}, {15, 4}, {15, 6}, {-5, 6}, {-5, 4}}}
	vertical := orb.Polygon{{{4, -5}, {6, -5}, {6, 15}, {4, 15}, {4, -5}}}
	if !Intersects(horizontal, vertical) {
		t.Error("crossing strips should intersect")
	}
}

func TestIntersects_LineThroughPolygon(t *testing.T) {
	line := orb.LineString{{-5, 5}, {15, 5}}
	if !Intersects(line, square) {
		t.Error("line through the polygon should intersect")
	}
	if !Intersects(square, line) {
		t.Error("intersection should be symmetric")
	}
	miss := orb.LineString{{-5, 20}, {15, 20}}
	if Intersects(miss, square) {
		t.Error("line passing by should not intersect")
	}
}

func TestWithin_LineInPolygon(t *testing.T) {
	inside := orb.LineString{{2, 2}, {8, 8}}
	if !Within(inside, square) {
		t.Error("contained line should be within")
	}
	crossing := orb.LineString{{5, 5}, {20, 5}}
	if Within(crossing, square) {
		t.Error("line leaving the polygon is not within")
	}
}

func TestTransform_Identity(t *testing.T) {
	got, err := Transform(orb.Point{10, 50}, WGS84(), WGS84())
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if pt, ok := got.(orb.Point); !ok || !pt.Equal(orb.Point{10, 50}) {
		t.Errorf("identity transform changed the point: %#v", got)
	}
}

func TestTransform_NoCRSOnEitherSide(t *testing.T) {
	if _, err := Transform(orb.Point{1, 1}, nil, nil); err != nil {
		t.Errorf("two unset CRS should transform as identity, got %v", err)
	}
	if _, err := Transform(orb.Point{1, 1}, nil, WGS84()); !errors.Is(err, ErrSpatialReference) {
		t.Errorf("one-sided missing CRS: expected ErrSpatialReference, got %v", err)
	}
}

func TestTransform_MercatorRoundTrip(t *testing.T) {
	start := orb.Point{10, 50}
	merc, err := Transform(start, WGS84(), WebMercator())
	if err != nil {
		t.Fatalf("to mercator: %v", err)
	}
	if pt := merc.(orb.Point); math.Abs(pt[0]-start[0]) < 1 {
		t.Errorf("mercator x should be in meters, got %v", pt)
	}
	back, err := Transform(merc, WebMercator(), WGS84())
	if err != nil {
		t.Fatalf("back to wgs84: %v", err)
	}
	pt := back.(orb.Point)
	if math.Abs(pt[0]-start[0]) > 1e-6 || math.Abs(pt[1]-start[1]) > 1e-6 {
		t.Errorf("round trip drifted: %v", pt)
	}
}

func TestTransform_UnsupportedPair(t *testing.T) {
	_, err := Transform(orb.Point{1, 1}, &CRS{Code: 28356}, WGS84())
	if !errors.Is(err, ErrSpatialReference) {
		t.Errorf("expected ErrSpatialReference, got %v", err)
	}
}

func TestTransform_DoesNotMutateInput(t *testing.T) {
	line := orb.LineString{{10, 50}, {11, 51}}
	if _, err := Transform(line, WGS84(), WebMercator()); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !line[0].Equal(orb.Point{10, 50}) {
		t.Errorf("input geometry was mutated: %v", line)
	}
}

func TestWKT_RoundTrip(t *testing.T) {
	s := MarshalWKT(square)
	if s == "" {
		t.Fatal("expected non-empty WKT")
	}
	got, err := UnmarshalWKT(s)
	if err != nil {
		t.Fatalf("UnmarshalWKT failed: %v", err)
	}
	poly, ok := got.(orb.Polygon)
	if !ok {
		t.Fatalf("expected polygon, got %T", got)
	}
	if !poly.Equal(square) {
		t.Errorf("round trip changed the polygon: %v", poly)
	}
}

func TestUnmarshalWKT_Invalid(t *testing.T) {
	if _, err := UnmarshalWKT("POLYGON(oops"); !errors.Is(err, ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}
}
