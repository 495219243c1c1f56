package geojoin

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// Conversion between orb geometries and the FlatGeobuf coordinate
// layout. FlatGeobuf stores coordinates as a flat xy array plus an
// optional "ends" array splitting it into runs (rings or line parts);
// nested types (MultiPolygon, GeometryCollection) use sub-geometries.

// fgbGeometryType maps an orb geometry to its FlatGeobuf type tag.
func fgbGeometryType(g orb.Geometry) flattypes.GeometryType {
	switch g.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// flattenXY appends the coordinates of one point run to xy.
func flattenXY(xy []float64, run []orb.Point) []float64 {
	for _, p := range run {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

// runsToXYEnds flattens several point runs into one xy array with
// cumulative end offsets.
func runsToXYEnds[T ~[]orb.Point](runs []T) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(runs))
	total := uint32(0)
	for _, run := range runs {
		xy = flattenXY(xy, run)
		total += uint32(len(run))
		ends = append(ends, total)
	}
	return xy, ends
}

// geometryToFGB converts an orb geometry for writing. Returns nil for
// unsupported types.
func geometryToFGB(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	if geom == nil {
		return nil
	}

	g := writer.NewGeometry(builder)
	g.SetType(fgbGeometryType(geom))

	switch v := geom.(type) {
	case orb.Point:
		g.SetXY([]float64{v[0], v[1]})

	case orb.MultiPoint:
		g.SetXY(flattenXY(nil, v))

	case orb.LineString:
		g.SetXY(flattenXY(nil, v))

	case orb.MultiLineString:
		xy, ends := runsToXYEnds(v)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Ring:
		g.SetXY(flattenXY(nil, v))
		g.SetEnds([]uint32{uint32(len(v))})

	case orb.Polygon:
		xy, ends := runsToXYEnds(v)
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.Bound:
		xy, ends := runsToXYEnds(boundToPolygon(v))
		g.SetXY(xy)
		g.SetEnds(ends)

	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			pg := writer.NewGeometry(builder)
			pg.SetType(flattypes.GeometryTypePolygon)
			xy, ends := runsToXYEnds(poly)
			pg.SetXY(xy)
			pg.SetEnds(ends)
			parts = append(parts, *pg)
		}
		g.SetParts(parts)

	case orb.Collection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if cg := geometryToFGB(child, builder); cg != nil {
				parts = append(parts, *cg)
			}
		}
		g.SetParts(parts)

	default:
		return nil
	}

	return g
}

// fgbXYRuns reads the flat xy array of a geometry and splits it at the
// end offsets. Without an ends array the whole sequence is one run.
func fgbXYRuns(g *flattypes.Geometry) [][]orb.Point {
	n := g.XyLength() / 2
	pts := make([]orb.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}

	endsLen := g.EndsLength()
	if endsLen == 0 {
		if len(pts) == 0 {
			return nil
		}
		return [][]orb.Point{pts}
	}

	runs := make([][]orb.Point, 0, endsLen)
	start := uint32(0)
	for i := 0; i < endsLen; i++ {
		end := g.Ends(i)
		if end > uint32(len(pts)) {
			end = uint32(len(pts))
		}
		runs = append(runs, pts[start:end])
		start = end
	}
	return runs
}

// geometryFromFGB converts a stored geometry back to its orb type.
// Returns nil for empty or unsupported geometries.
func geometryFromFGB(g *flattypes.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}

	switch g.Type() {
	case flattypes.GeometryTypePoint:
		runs := fgbXYRuns(g)
		if len(runs) == 0 || len(runs[0]) == 0 {
			return nil
		}
		return runs[0][0]

	case flattypes.GeometryTypeMultiPoint:
		runs := fgbXYRuns(g)
		if len(runs) == 0 {
			return orb.MultiPoint{}
		}
		return orb.MultiPoint(runs[0])

	case flattypes.GeometryTypeLineString:
		runs := fgbXYRuns(g)
		if len(runs) == 0 {
			return orb.LineString{}
		}
		return orb.LineString(runs[0])

	case flattypes.GeometryTypeMultiLineString:
		runs := fgbXYRuns(g)
		mls := make(orb.MultiLineString, 0, len(runs))
		for _, run := range runs {
			mls = append(mls, orb.LineString(run))
		}
		return mls

	case flattypes.GeometryTypePolygon:
		runs := fgbXYRuns(g)
		poly := make(orb.Polygon, 0, len(runs))
		for _, run := range runs {
			poly = append(poly, orb.Ring(run))
		}
		return poly

	case flattypes.GeometryTypeMultiPolygon:
		partsLen := g.PartsLength()
		if partsLen == 0 {
			// Flat encoding without parts: treat as one polygon.
			runs := fgbXYRuns(g)
			if len(runs) == 0 {
				return orb.MultiPolygon{}
			}
			poly := make(orb.Polygon, 0, len(runs))
			for _, run := range runs {
				poly = append(poly, orb.Ring(run))
			}
			return orb.MultiPolygon{poly}
		}
		mp := make(orb.MultiPolygon, 0, partsLen)
		for i := 0; i < partsLen; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if poly, ok := geometryFromFGB(&part).(orb.Polygon); ok {
					mp = append(mp, poly)
				}
			}
		}
		return mp

	case flattypes.GeometryTypeGeometryCollection:
		partsLen := g.PartsLength()
		coll := make(orb.Collection, 0, partsLen)
		for i := 0; i < partsLen; i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if child := geometryFromFGB(&part); child != nil {
					coll = append(coll, child)
				}
			}
		}
		return coll

	default:
		return nil
	}
}

// boundToPolygon expands a bound to its rectangle ring.
func boundToPolygon(b orb.Bound) orb.Polygon {
	return orb.Polygon{
		orb.Ring{
			{b.Min[0], b.Min[1]},
			{b.Max[0], b.Min[1]},
			{b.Max[0], b.Max[1]},
			{b.Min[0], b.Max[1]},
			{b.Min[0], b.Min[1]},
		},
	}
}
