package geojoin

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// DefaultGeometryKey is the attribute key the transformed geometry is
// tagged under on materialized source records.
const DefaultGeometryKey = "geometry_wkt"

// datasetExt is the extension of output datasets.
const datasetExt = ".fgb"

// ProgressSample is an advisory snapshot of join progress. Samples never
// affect control flow.
type ProgressSample struct {
	Done    int
	Total   int
	Percent int
}

// JoinOptions configures a spatial join.
type JoinOptions struct {
	// Separator joins merged values; a value lands in the output as
	// "a<sep> b". Required by convention, though an empty separator is
	// accepted and merges with a single space.
	Separator string

	// OutputPath for the joined dataset. Empty means DefaultJoinName.
	// The dataset extension is appended when missing.
	OutputPath string

	// Fields restricts which source fields are joined. Nil means all of
	// them, in the source's native field order.
	Fields []string

	// GeometryKey overrides DefaultGeometryKey.
	GeometryKey string

	// LayerName for the output dataset. Empty means "result".
	LayerName string

	// Progress, when set, receives a sample whenever the integer
	// percentage of completed features is a multiple of 10.
	Progress func(ProgressSample)
}

// DefaultJoinName builds the default output name for joining source onto
// dest: "{dest}_join_{source}__{YYYYMMDD_HHMMSS}" from wall-clock time.
func DefaultJoinName(dest, source *Dataset) string {
	stamp := time.Now().Format("20060102_150405")
	return dest.Name() + "_join_" + source.Name() + "__" + stamp
}

// Join writes a copy of dest enriched with attribute values from
// spatially matching source features and returns the output path. Every
// destination feature is kept; a feature matches a source feature when
// it is within it, intersects it, or contains it. All matches
// contribute, each merged into the running field value in source order.
//
// The whole source set is held in memory for the duration of the call
// and every destination feature is compared against every source
// feature, so memory grows with the source feature count and runtime
// with the product of the two counts.
//
// On any failure the partially-written output is deleted before the
// error is returned; dest and source are never mutated.
func Join(dest, source *Dataset, opts JoinOptions) (path string, err error) {
	key := opts.GeometryKey
	if key == "" {
		key = DefaultGeometryKey
	}
	layer := opts.LayerName
	if layer == "" {
		layer = "result"
	}
	path = opts.OutputPath
	if path == "" {
		path = DefaultJoinName(dest, source)
	}
	if !strings.HasSuffix(path, datasetExt) {
		path += datasetExt
	}

	out, err := dest.Copy(path, layer)
	if err != nil {
		_ = DeleteDataset(path)
		return "", joinErr(err)
	}
	defer func() {
		// No partial output on any non-success exit, panics included.
		if r := recover(); r != nil {
			_ = out.Discard()
			panic(r)
		}
		if err != nil {
			_ = out.Discard()
		}
	}()

	mapping, err := NewFieldMapping(out, source, opts.Fields)
	if err != nil {
		return "", joinErr(err)
	}

	records, err := materializeSource(source, dest.CRS(), key)
	if err != nil {
		return "", joinErr(err)
	}

	total := out.FeatureCount()
	for done, f := range out.Features() {
		if f.Geometry != nil {
			for _, rec := range records {
				srcGeom, _ := rec[key].(orb.Geometry)
				if srcGeom == nil {
					continue
				}
				if Within(f.Geometry, srcGeom) || Intersects(f.Geometry, srcGeom) ||
					Within(srcGeom, f.Geometry) {
					for _, pair := range mapping.Pairs() {
						mergeField(f, pair.Dest, rec[pair.Source], opts.Separator)
					}
				}
			}
		}
		if err = out.SetFeature(f); err != nil {
			return "", joinErr(err)
		}
		emitProgress(opts.Progress, done+1, total)
	}

	if err = out.Close(); err != nil {
		return "", joinErr(err)
	}
	return path, nil
}

func joinErr(err error) error {
	return fmt.Errorf("%w: %w", ErrJoinFailed, err)
}

// materializeSource loads every source feature into memory as a plain
// record, its geometry transformed into the destination CRS and tagged
// under key. Features without geometry are dropped; they can never
// match.
func materializeSource(source *Dataset, destCRS *CRS, key string) ([]map[string]interface{}, error) {
	names := source.FieldNames()
	var records []map[string]interface{}
	for _, f := range source.Features() {
		if f.Geometry == nil {
			continue
		}
		g, err := Transform(f.Geometry, source.CRS(), destCRS)
		if err != nil {
			return nil, err
		}
		rec := make(map[string]interface{}, len(names)+1)
		for _, name := range names {
			rec[name] = f.Properties[name]
		}
		rec[key] = g
		records = append(records, rec)
	}
	return records, nil
}

// mergeField merges one matched source value into the feature's
// destination field. An incoming value already contained in the current
// value is skipped (the containment check is case-sensitive; the sort is
// not). Otherwise the non-empty values are sorted case-insensitively,
// joined with separator plus a space, and stored trimmed.
func mergeField(f *Feature, dest string, incoming interface{}, sep string) {
	existing := valueString(f.Properties[dest])
	newVal := valueString(incoming)

	if newVal != "" && existing != "" && strings.Contains(existing, newVal) {
		return
	}

	vals := make([]string, 0, 2)
	for _, v := range [2]string{existing, newVal} {
		if v != "" {
			vals = append(vals, v)
		}
	}
	sort.SliceStable(vals, func(i, j int) bool {
		return strings.ToLower(vals[i]) < strings.ToLower(vals[j])
	})
	f.Properties[dest] = strings.TrimSpace(strings.Join(vals, sep+" "))
}

// emitProgress reports completion whenever the integer percentage lands
// on a multiple of 10. Small totals may skip values; the sequence is
// monotonically non-decreasing either way.
func emitProgress(cb func(ProgressSample), done, total int) {
	if cb == nil || total == 0 {
		return
	}
	pct := done * 100 / total
	if pct%10 == 0 {
		cb(ProgressSample{Done: done, Total: total, Percent: pct})
	}
}
