package topojson

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Topology is a decoded TopoJSON document.
type Topology struct {
	Transform Transform
	BBox      *orb.Bound // bbox member, if the document has one
	Arcs      *ArcTable
	Objects   []string // object names in document order
	Store     *Store
}

// Decode parses a TopoJSON document and materializes its features.
// Any structural problem aborts decoding; there is no partial result.
func Decode(data []byte, opts *Options) (*Topology, error) {
	log := opts.logger()

	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrNotTopology)
	}
	root, err := ParseValue(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTopology, err)
	}
	if root.Kind() != KindObject {
		return nil, fmt.Errorf("%w: document is a %s", ErrNotTopology, root.Kind())
	}

	typeValue, _ := root.Member("type")
	if typ, err := typeValue.Text(); err != nil || typ != "Topology" {
		return nil, fmt.Errorf("%w: type must be \"Topology\"", ErrNotTopology)
	}
	objects, ok := root.Member("objects")
	if !ok || objects.Kind() != KindObject {
		return nil, fmt.Errorf("%w: missing objects", ErrNotTopology)
	}

	topo := &Topology{}

	// The transform has to be known before any arc is decoded.
	transformValue, _ := root.Member("transform")
	if topo.Transform, err = decodeTransform(transformValue); err != nil {
		return nil, err
	}

	if bboxValue, ok := root.Member("bbox"); ok {
		b, err := decodeBBox(bboxValue)
		if err != nil {
			return nil, err
		}
		topo.BBox = &b
	}

	arcsValue, _ := root.Member("arcs")
	if topo.Arcs, err = decodeArcs(arcsValue, topo.Transform); err != nil {
		return nil, err
	}

	r := &reconstructor{arcs: topo.Arcs, transform: topo.Transform}
	schema := NewSchema()
	var features []*geojson.Feature

	err = objects.Each(func(name string, obj *Value) error {
		topo.Objects = append(topo.Objects, name)

		decoded, err := r.objectFeatures(obj, schema)
		if err != nil {
			return fmt.Errorf("object %q: %w", name, err)
		}
		features = append(features, decoded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	conformProperties(features, schema)
	topo.Store = NewStore(features, schema)

	log.Debug("topology decoded",
		"objects", len(topo.Objects),
		"arcs", topo.Arcs.Len(),
		"features", len(features),
		"fields", schema.Len(),
		"quantized", topo.Transform.Quantized(),
	)

	return topo, nil
}

// Load decodes a TopoJSON document and returns its feature store.
func Load(data []byte, opts *Options) (*Store, error) {
	topo, err := Decode(data, opts)
	if err != nil {
		return nil, err
	}
	return topo.Store, nil
}

// objectFeatures converts one named object. A GeometryCollection yields
// one feature per member; any other object is a single feature.
func (r *reconstructor) objectFeatures(obj *Value, schema *Schema) ([]*geojson.Feature, error) {
	if obj.Kind() != KindObject {
		return nil, malformed("geometry object must be an object, got %s", obj.Kind())
	}

	typ, err := geometryType(obj)
	if err != nil {
		return nil, err
	}
	if typ != TypeGeometryCollection {
		f, err := r.feature(obj, schema)
		if err != nil {
			return nil, err
		}
		return []*geojson.Feature{f}, nil
	}

	members, err := collectionMembers(obj)
	if err != nil {
		return nil, err
	}
	features := make([]*geojson.Feature, 0, len(members))
	for i, m := range members {
		if m.Kind() != KindObject {
			return nil, malformed("geometry %d must be an object, got %s", i, m.Kind())
		}
		f, err := r.feature(m, schema)
		if err != nil {
			return nil, fmt.Errorf("geometry %d: %w", i, err)
		}
		features = append(features, f)
	}
	return features, nil
}

func (r *reconstructor) feature(obj *Value, schema *Schema) (*geojson.Feature, error) {
	geom, err := r.geometry(obj)
	if err != nil {
		return nil, err
	}

	propsValue, _ := obj.Member("properties")
	props, err := extractProperties(propsValue, schema)
	if err != nil {
		return nil, err
	}

	f := geojson.NewFeature(geom)
	f.Properties = props
	if idValue, ok := obj.Member("id"); ok {
		switch idValue.Kind() {
		case KindString, KindNumber:
			f.ID = propertyValue(idValue)
		}
	}
	return f, nil
}

func decodeBBox(v *Value) (orb.Bound, error) {
	elems, err := v.Array()
	if err != nil {
		return orb.Bound{}, malformed("bbox: %v", err)
	}
	if len(elems) < 4 || len(elems)%2 != 0 {
		return orb.Bound{}, malformed("bbox needs 4 numbers, got %d", len(elems))
	}

	half := len(elems) / 2
	var b orb.Bound
	for i, idx := range []int{0, 1, half, half + 1} {
		f, err := elems[idx].Float()
		if err != nil {
			return orb.Bound{}, malformed("bbox: %v", err)
		}
		if i < 2 {
			b.Min[i] = f
		} else {
			b.Max[i-2] = f
		}
	}
	return b, nil
}
