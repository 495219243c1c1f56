package geojoin

import (
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
)

// writeDataset serializes the dataset's schema and features to w in
// FlatGeobuf format, including the packed spatial index.
func writeDataset(w io.Writer, d *Dataset) error {
	builder := flatbuffers.NewBuilder(4096)

	header := writer.NewHeader(builder)
	header.SetGeometryType(datasetGeometryType(d.features))
	if d.name != "" {
		header.SetName(d.name)
	}

	if len(d.columns) > 0 {
		cols := make([]*writer.Column, 0, len(d.columns))
		for _, c := range d.columns {
			col := writer.NewColumn(builder)
			col.SetName(c.Name)
			col.SetTitle(c.Name)
			col.SetType(c.Type)
			col.SetNullable(c.Nullable)
			cols = append(cols, col)
		}
		header.SetColumns(cols)
	}

	if d.crs != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if d.crs.Code > 0 {
			crs.SetCode(int32(d.crs.Code))
		}
		if d.crs.Name != "" {
			crs.SetName(d.crs.Name)
		}
		if d.crs.Description != "" {
			crs.SetDescription(d.crs.Description)
		}
		header.SetCrs(crs)
	}

	// The packed index writer cannot handle zero entries; an empty file
	// is readable without one.
	gen := &datasetFeatureGenerator{features: d.features, columns: d.columns}
	fgbWriter := writer.NewWriter(header, len(d.features) > 0, gen, nil)
	_, err := fgbWriter.Write(w)
	return err
}

// datasetGeometryType returns the common geometry type of the features,
// or Unknown when they are mixed or all empty.
func datasetGeometryType(features []*Feature) flattypes.GeometryType {
	geomType := flattypes.GeometryTypeUnknown
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		t := fgbGeometryType(f.Geometry)
		if geomType == flattypes.GeometryTypeUnknown {
			geomType = t
		} else if t != geomType {
			return flattypes.GeometryTypeUnknown
		}
	}
	return geomType
}

// datasetFeatureGenerator feeds the dataset's features to the FlatGeobuf
// writer one at a time.
type datasetFeatureGenerator struct {
	features []*Feature
	columns  []Column
	index    int
}

func (g *datasetFeatureGenerator) Generate() *writer.Feature {
	if g.index >= len(g.features) {
		return nil
	}
	f := g.features[g.index]
	g.index++

	builder := flatbuffers.NewBuilder(1024)
	feature := writer.NewFeature(builder)

	var fg *writer.Geometry
	if f.Geometry != nil {
		fg = geometryToFGB(f.Geometry, builder)
	}
	if fg == nil {
		// The feature writer cannot build without a geometry. An empty
		// Unknown geometry keeps the feature in the file and decodes
		// back to nil.
		fg = writer.NewGeometry(builder)
		fg.SetType(flattypes.GeometryTypeUnknown)
		fg.SetXY([]float64{})
	}
	feature.SetGeometry(fg)

	if props := encodeProps(f.Properties, g.columns); len(props) > 0 {
		feature.SetProperties(props)
	}
	return feature
}
