// Package datasource exposes decoded feature stores to a host query or
// rendering engine through a small interface and a static registry of
// datasource types.
package datasource

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	topojson "github.com/tingold/orb-topojson"
)

// GeometryType is the dominant geometry kind of a datasource.
type GeometryType int

const (
	GeometryUnknown GeometryType = iota
	GeometryPoint
	GeometryLineString
	GeometryPolygon
	GeometryCollection
)

func (t GeometryType) String() string {
	switch t {
	case GeometryPoint:
		return "Point"
	case GeometryLineString:
		return "LineString"
	case GeometryPolygon:
		return "Polygon"
	case GeometryCollection:
		return "Collection"
	default:
		return "Unknown"
	}
}

// Descriptor summarizes a datasource.
type Descriptor struct {
	Type         string
	GeometryType GeometryType
	Encoding     string
	Fields       []string
}

// Query selects features by bound and restricts their properties.
type Query struct {
	Bound         *orb.Bound // nil selects every feature
	PropertyNames []string   // empty keeps all properties
}

// Datasource is a read-only collection of features. Implementations are
// safe for concurrent use.
type Datasource interface {
	Envelope() orb.Bound
	Fields() []string
	FieldTypes() []topojson.FieldType
	Describe() Descriptor
	Features(q Query) ([]*geojson.Feature, error)
	FeaturesAtPoint(p orb.Point, tol float64) []*geojson.Feature
	AllFeatures() []*geojson.Feature
}

// storeDatasource serves any datasource type that loads into a Store.
type storeDatasource struct {
	store *topojson.Store
	desc  Descriptor
}

// FromStore wraps a loaded store as a Datasource of the given type.
func FromStore(typ string, store *topojson.Store) Datasource {
	return &storeDatasource{
		store: store,
		desc: Descriptor{
			Type:         typ,
			GeometryType: describeGeometry(store.Features()),
			Encoding:     "utf-8",
			Fields:       store.Fields(),
		},
	}
}

func (d *storeDatasource) Envelope() orb.Bound { return d.store.Envelope() }

func (d *storeDatasource) Fields() []string { return d.store.Fields() }

func (d *storeDatasource) FieldTypes() []topojson.FieldType { return d.store.FieldTypes() }

func (d *storeDatasource) Describe() Descriptor {
	desc := d.desc
	desc.Fields = slices.Clone(d.desc.Fields)
	return desc
}

func (d *storeDatasource) Features(q Query) ([]*geojson.Feature, error) {
	for _, name := range q.PropertyNames {
		if _, ok := d.store.Schema().Type(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}

	var features []*geojson.Feature
	if q.Bound == nil {
		features = d.store.Features()
	} else {
		features = d.store.FeaturesIn(*q.Bound)
	}

	if len(q.PropertyNames) == 0 {
		return features, nil
	}
	projected := make([]*geojson.Feature, len(features))
	for i, f := range features {
		projected[i] = project(f, q.PropertyNames)
	}
	return projected, nil
}

func (d *storeDatasource) FeaturesAtPoint(p orb.Point, tol float64) []*geojson.Feature {
	return d.store.FeaturesAt(p, tol)
}

func (d *storeDatasource) AllFeatures() []*geojson.Feature {
	return d.store.Features()
}

// project returns a shallow copy of f carrying only the named properties.
func project(f *geojson.Feature, names []string) *geojson.Feature {
	out := &geojson.Feature{
		ID:         f.ID,
		Type:       f.Type,
		BBox:       f.BBox,
		Geometry:   f.Geometry,
		Properties: make(geojson.Properties, len(names)),
	}
	for _, name := range names {
		if v, ok := f.Properties[name]; ok {
			out.Properties[name] = v
		}
	}
	return out
}

// describeGeometry reports the kind of the first geometry, with Multi*
// collapsed to the base kind. Mixed kinds report Collection.
func describeGeometry(features []*geojson.Feature) GeometryType {
	result := GeometryUnknown
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		kind := geometryKind(f.Geometry)
		switch {
		case result == GeometryUnknown:
			result = kind
		case kind != result:
			return GeometryCollection
		}
	}
	return result
}

func geometryKind(g orb.Geometry) GeometryType {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return GeometryPoint
	case orb.LineString, orb.MultiLineString:
		return GeometryLineString
	case orb.Polygon, orb.MultiPolygon, orb.Ring, orb.Bound:
		return GeometryPolygon
	default:
		return GeometryCollection
	}
}
