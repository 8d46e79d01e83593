package topojson

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Store is an immutable collection of decoded features with their schema.
// Bounds are computed when the store is built, so a Store is safe for
// concurrent use.
type Store struct {
	features []*geojson.Feature
	bounds   []orb.Bound
	schema   *Schema
	envelope orb.Bound
}

// NewStore builds a store over features. When schema is nil it is
// inferred from the feature properties. The store takes ownership of
// the features; they must not be modified afterwards.
func NewStore(features []*geojson.Feature, schema *Schema) *Store {
	if schema == nil {
		schema = inferSchema(features)
	}

	s := &Store{
		features: features,
		bounds:   make([]orb.Bound, len(features)),
		schema:   schema,
	}

	first := true
	for i, f := range features {
		if f.Geometry == nil {
			continue
		}
		b := f.Geometry.Bound()
		s.bounds[i] = b
		if b.IsEmpty() {
			continue
		}
		if first {
			s.envelope = b
			first = false
		} else {
			s.envelope = s.envelope.Union(b)
		}
	}

	return s
}

// Len returns the number of features.
func (s *Store) Len() int {
	return len(s.features)
}

// Envelope returns the union of all feature bounds. It is the zero
// bound when no feature has a geometry.
func (s *Store) Envelope() orb.Bound {
	return s.envelope
}

// Schema returns the property schema.
func (s *Store) Schema() *Schema {
	return s.schema
}

// Fields returns the property names in first-seen order.
func (s *Store) Fields() []string {
	return s.schema.Fields()
}

// FieldTypes returns the property types aligned with Fields.
func (s *Store) FieldTypes() []FieldType {
	return s.schema.FieldTypes()
}

// Features returns all features in document order.
func (s *Store) Features() []*geojson.Feature {
	return slices.Clone(s.features)
}

// FeaturesIn returns the features whose bounds intersect b.
func (s *Store) FeaturesIn(b orb.Bound) []*geojson.Feature {
	var result []*geojson.Feature
	for i, f := range s.features {
		if f.Geometry == nil {
			continue
		}
		if s.bounds[i].Intersects(b) {
			result = append(result, f)
		}
	}
	return result
}

// FeaturesAt returns the features hit by p. Polygons match when they
// contain p; points and lines match within tolerance tol.
func (s *Store) FeaturesAt(p orb.Point, tol float64) []*geojson.Feature {
	var result []*geojson.Feature
	for i, f := range s.features {
		if f.Geometry == nil {
			continue
		}
		if !s.bounds[i].Pad(tol).Contains(p) {
			continue
		}
		if hit(f.Geometry, p, tol) {
			result = append(result, f)
		}
	}
	return result
}

func hit(g orb.Geometry, p orb.Point, tol float64) bool {
	switch v := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(v, p) || planar.DistanceFrom(v, p) <= tol
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(v, p) || planar.DistanceFrom(v, p) <= tol
	case orb.Ring:
		return planar.RingContains(v, p) || planar.DistanceFrom(v, p) <= tol
	case orb.Bound:
		return v.Pad(tol).Contains(p)
	case orb.Collection:
		for _, child := range v {
			if hit(child, p, tol) {
				return true
			}
		}
		return false
	default:
		return planar.DistanceFrom(g, p) <= tol
	}
}
