// Package topojson decodes TopoJSON documents into orb geometries.
// It resolves quantized, delta-encoded arcs into absolute coordinates,
// rebuilds geometries from shared arc references and exposes the result
// as an immutable Store of geojson.Feature values with a typed schema.
package topojson

import (
	"errors"
	"fmt"
	"log/slog"
)

// Common errors returned by this package.
var (
	ErrNotTopology         = errors.New("topojson: not a topology document")
	ErrMalformedTopology   = errors.New("topojson: malformed topology")
	ErrArcIndexOutOfRange  = errors.New("topojson: arc index out of range")
	ErrUnknownGeometryType = errors.New("topojson: unknown geometry type")
)

// ArcIndexError reports an arc reference that does not resolve
// within the arc table.
type ArcIndexError struct {
	Ref   int // Reference as written in the document
	Count int // Number of arcs in the table
}

func (e *ArcIndexError) Error() string {
	return fmt.Sprintf("topojson: arc reference %d out of range for %d arcs", e.Ref, e.Count)
}

func (e *ArcIndexError) Is(target error) bool { return target == ErrArcIndexOutOfRange }

// UnknownGeometryTypeError reports a geometry object with an unrecognized type tag.
type UnknownGeometryTypeError struct {
	Type string
}

func (e *UnknownGeometryTypeError) Error() string {
	return fmt.Sprintf("topojson: unknown geometry type %q", e.Type)
}

func (e *UnknownGeometryTypeError) Is(target error) bool { return target == ErrUnknownGeometryType }

// malformed wraps ErrMalformedTopology with a formatted reason.
func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedTopology, fmt.Sprintf(format, args...))
}

// Options configures decoding.
type Options struct {
	Logger *slog.Logger // Debug/warn output (default: discarded)
}

// DefaultOptions returns default options for decoding.
func DefaultOptions() *Options {
	return &Options{
		Logger: slog.New(slog.DiscardHandler),
	}
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
