// Package geojoin implements a spatial attribute join over FlatGeobuf
// vector datasets. Given a destination and a source dataset, it attaches
// attribute values from spatially matching source features onto a copy of
// the destination, resolving field-name collisions and merging overlapping
// values into a single deduplicated, separator-joined string per field.
package geojoin

import (
	"errors"
)

// Common errors returned by this package.
var (
	ErrDatasetOpen      = errors.New("geojoin: cannot open dataset")
	ErrSpatialReference = errors.New("geojoin: unresolvable spatial reference")
	ErrFieldExists      = errors.New("geojoin: field already exists")
	ErrUnknownField     = errors.New("geojoin: field not in schema")
	ErrUnknownFeature   = errors.New("geojoin: feature not in dataset")
	ErrJoinFailed       = errors.New("geojoin: join failed")
	ErrArchiveWrite     = errors.New("geojoin: archive write failed")
	ErrUnsupportedType  = errors.New("geojoin: unsupported geometry type")
	ErrInvalidData      = errors.New("geojoin: invalid data")
	ErrNoIndex          = errors.New("geojoin: file has no spatial index")
	ErrClosed           = errors.New("geojoin: dataset is closed")
)

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
}

// WGS84 returns the standard WGS84 CRS (EPSG:4326).
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// WebMercator returns the Web Mercator CRS (EPSG:3857).
func WebMercator() *CRS {
	return &CRS{
		Code: 3857,
		Name: "WGS 84 / Pseudo-Mercator",
	}
}
