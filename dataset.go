package geojoin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Column describes one attribute column of a dataset.
type Column struct {
	Name     string
	Type     flattypes.ColumnType
	Nullable bool
}

// Feature is one record of a dataset: typed attribute values keyed by
// column name, plus an optional geometry. ID is the feature's position
// in the dataset and stays stable across reads and writes.
type Feature struct {
	ID         int
	Properties geojson.Properties
	Geometry   orb.Geometry
}

// Clone returns a deep copy of the feature.
func (f *Feature) Clone() *Feature {
	c := &Feature{ID: f.ID, Properties: f.Properties.Clone()}
	if f.Geometry != nil {
		c.Geometry = orb.Clone(f.Geometry)
	}
	return c
}

// Dataset is a FlatGeobuf-backed feature collection. Datasets returned
// by Open are read-only; datasets returned by Copy are open for update
// and are persisted by Flush/Close.
type Dataset struct {
	path     string
	name     string
	crs      *CRS
	columns  []Column
	byName   map[string]int
	features []*Feature
	writable bool
	closed   bool
}

// NewDataset creates an empty writable dataset. Nothing touches disk
// until Flush or Close writes it to path.
func NewDataset(path, name string, crs *CRS, columns []Column) *Dataset {
	d := &Dataset{
		path:     path,
		name:     name,
		crs:      crs,
		writable: true,
		byName:   make(map[string]int, len(columns)),
		columns:  append([]Column(nil), columns...),
	}
	for i, c := range d.columns {
		d.byName[c.Name] = i
	}
	return d
}

// AppendFeature adds a feature at the next ID and returns it. Attribute
// keys are validated against the schema.
func (d *Dataset) AppendFeature(props geojson.Properties, g orb.Geometry) (*Feature, error) {
	if !d.writable {
		return nil, fmt.Errorf("geojoin: dataset %s is read-only", d.name)
	}
	if d.closed {
		return nil, ErrClosed
	}
	if props == nil {
		props = geojson.Properties{}
	}
	for key := range props {
		if _, ok := d.byName[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	f := &Feature{ID: len(d.features), Properties: props, Geometry: g}
	d.features = append(d.features, f)
	return f, nil
}

// Open reads the FlatGeobuf file at path and materializes its schema and
// features. The file is memory-mapped while being decoded; the returned
// dataset is fully in memory and read-only.
func Open(path string) (*Dataset, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatasetOpen, path, err)
	}

	h := fgb.Header()
	if h == nil {
		return nil, fmt.Errorf("%w: %s: missing header", ErrDatasetOpen, path)
	}

	d := &Dataset{
		path:   path,
		name:   string(h.Name()),
		byName: map[string]int{},
	}
	if d.name == "" {
		d.name = baseName(path)
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		d.crs = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			d.byName[string(col.Name())] = len(d.columns)
			d.columns = append(d.columns, Column{
				Name:     string(col.Name()),
				Type:     col.Type(),
				Nullable: col.Nullable(),
			})
		}
	}

	if err := d.readFeatures(fgb); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatasetOpen, path, err)
	}
	return d, nil
}

// readFeatures decodes every feature through the file's packed index.
// The official Go FlatGeobuf reader can only iterate via Search, so an
// index and a header envelope are required for non-empty files.
func (d *Dataset) readFeatures(fgb *flatgeobuf.FlatGeoBuf) error {
	h := fgb.Header()
	if h.FeaturesCount() == 0 {
		return nil
	}
	if h.IndexNodeSize() == 0 {
		return ErrNoIndex
	}
	if h.EnvelopeLength() < 4 {
		return fmt.Errorf("%w: header has no envelope", ErrInvalidData)
	}

	raw, err := fgb.Search(h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
	if err != nil {
		return err
	}

	for _, ff := range raw {
		f := &Feature{ID: len(d.features), Properties: geojson.Properties{}}

		var geomObj flattypes.Geometry
		if g := ff.Geometry(&geomObj); g != nil {
			f.Geometry = geometryFromFGB(g)
		}

		if n := ff.PropertiesLength(); n > 0 {
			buf := make([]byte, n)
			for i := 0; i < n; i++ {
				buf[i] = byte(ff.Properties(i))
			}
			f.Properties = decodeProps(buf, d.columns)
		}

		d.features = append(d.features, f)
	}
	return nil
}

// Name returns the dataset's layer name.
func (d *Dataset) Name() string { return d.name }

// Path returns the file path backing the dataset.
func (d *Dataset) Path() string { return d.path }

// CRS returns the dataset's coordinate reference system, or nil when the
// file carries none.
func (d *Dataset) CRS() *CRS { return d.crs }

// FieldNames returns the attribute column names in native column order.
func (d *Dataset) FieldNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// HasField reports whether name is a column of the dataset.
func (d *Dataset) HasField(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// FeatureCount returns the number of features in the dataset.
func (d *Dataset) FeatureCount() int { return len(d.features) }

// Features returns the dataset's features in native order. The returned
// slice is a fresh copy, so callers may range over it independently;
// the features themselves are shared.
func (d *Dataset) Features() []*Feature {
	return append([]*Feature(nil), d.features...)
}

// Feature returns the feature with the given ID.
func (d *Dataset) Feature(id int) (*Feature, error) {
	if id < 0 || id >= len(d.features) {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownFeature, id)
	}
	return d.features[id], nil
}

// CreateField appends a new string-typed, nullable column to the schema.
func (d *Dataset) CreateField(name string) error {
	if !d.writable {
		return fmt.Errorf("geojoin: dataset %s is read-only", d.name)
	}
	if d.closed {
		return ErrClosed
	}
	if _, ok := d.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrFieldExists, name)
	}
	d.byName[name] = len(d.columns)
	d.columns = append(d.columns, Column{Name: name, Type: flattypes.ColumnTypeString, Nullable: true})
	return nil
}

// SetFeature stores f at its ID slot, validating every attribute key
// against the schema.
func (d *Dataset) SetFeature(f *Feature) error {
	if !d.writable {
		return fmt.Errorf("geojoin: dataset %s is read-only", d.name)
	}
	if d.closed {
		return ErrClosed
	}
	if f == nil || f.ID < 0 || f.ID >= len(d.features) {
		return fmt.Errorf("%w: feature out of range", ErrUnknownFeature)
	}
	for key := range f.Properties {
		if _, ok := d.byName[key]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, key)
		}
	}
	d.features[f.ID] = f
	return nil
}

// Copy writes a schema-preserving deep copy of the dataset to destPath
// and returns it open for update. The file exists on disk once Copy
// returns; later mutations are persisted by Flush/Close.
func (d *Dataset) Copy(destPath, layerName string) (*Dataset, error) {
	out := &Dataset{
		path:     destPath,
		name:     layerName,
		writable: true,
		byName:   make(map[string]int, len(d.byName)),
		columns:  append([]Column(nil), d.columns...),
	}
	if d.crs != nil {
		crs := *d.crs
		out.crs = &crs
	}
	for name, i := range d.byName {
		out.byName[name] = i
	}
	out.features = make([]*Feature, len(d.features))
	for i, f := range d.features {
		out.features[i] = f.Clone()
	}
	if err := out.Flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// Flush rewrites the backing file from the in-memory state. The packed
// spatial index is always written since reading depends on it.
func (d *Dataset) Flush() error {
	if !d.writable {
		return fmt.Errorf("geojoin: dataset %s is read-only", d.name)
	}
	if d.closed {
		return ErrClosed
	}
	file, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("geojoin: cannot write dataset: %w", err)
	}
	werr := writeDataset(file, d)
	cerr := file.Close()
	if werr != nil {
		return fmt.Errorf("geojoin: cannot write dataset %s: %w", d.path, werr)
	}
	return cerr
}

// Close flushes a writable dataset and marks it closed. Closing a
// read-only dataset just releases it.
func (d *Dataset) Close() error {
	if d.closed {
		return nil
	}
	var err error
	if d.writable {
		err = d.Flush()
	}
	d.closed = true
	return err
}

// Discard marks the dataset closed and removes its backing file if it
// exists. Used to roll back a partially-written output.
func (d *Dataset) Discard() error {
	d.closed = true
	return DeleteDataset(d.path)
}

// DeleteDataset removes the dataset file at path. Missing files are not
// an error.
func DeleteDataset(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// baseName returns the file name at path stripped of its final extension.
func baseName(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
