// Package flatgeobuf exports decoded TopoJSON feature stores as FlatGeobuf
// and loads FlatGeobuf files back into the same store type, so both formats
// can sit behind one datasource.
package flatgeobuf

import (
	"errors"
	"log/slog"
)

// Common errors returned by this package.
var (
	ErrEmptyStore  = errors.New("flatgeobuf: store has no features with geometry")
	ErrInvalidData = errors.New("flatgeobuf: invalid data")
	ErrNoIndex     = errors.New("flatgeobuf: file has no spatial index")
)

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
}

// WGS84 returns the CRS TopoJSON coordinates are usually expressed in.
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// Options configures FlatGeobuf export.
type Options struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Write a packed R-tree; required to read the file back with ReadStore
	CRS          *CRS
	Logger       *slog.Logger
}

// DefaultOptions returns options that produce a file ReadStore can load.
func DefaultOptions() *Options {
	return &Options{
		IncludeIndex: true,
		CRS:          WGS84(),
	}
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// ColumnInfo describes a property column in a FlatGeobuf file.
type ColumnInfo struct {
	Name     string
	Type     string // FlatGeobuf column type name ("Long", "Double", "String", ...)
	Nullable bool
}

// Header contains metadata about a FlatGeobuf file.
type Header struct {
	Name          string
	Description   string
	GeometryType  string // "Point", "Polygon", "Unknown", ...
	FeaturesCount uint64
	Envelope      [4]float64 // [minX, minY, maxX, maxY]
	CRS           *CRS
	HasIndex      bool
	Columns       []ColumnInfo
}
