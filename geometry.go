package topojson

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Geometry type tags of TopoJSON geometry objects.
const (
	TypePoint              = "Point"
	TypeMultiPoint         = "MultiPoint"
	TypeLineString         = "LineString"
	TypeMultiLineString    = "MultiLineString"
	TypePolygon            = "Polygon"
	TypeMultiPolygon       = "MultiPolygon"
	TypeGeometryCollection = "GeometryCollection"
)

// reconstructor turns geometry objects into orb geometries using the arc table.
type reconstructor struct {
	arcs      *ArcTable
	transform Transform
}

// geometryType returns the type tag of a geometry object. A null type
// returns "" and no error.
func geometryType(obj *Value) (string, error) {
	tv, ok := obj.Member("type")
	if !ok {
		return "", malformed("geometry object has no type")
	}
	if tv.IsNull() {
		return "", nil
	}
	typ, err := tv.Text()
	if err != nil {
		return "", malformed("geometry type: %v", err)
	}
	return typ, nil
}

// geometry converts a geometry object. Objects with a null type
// produce a nil geometry.
func (r *reconstructor) geometry(obj *Value) (orb.Geometry, error) {
	typ, err := geometryType(obj)
	if err != nil {
		return nil, err
	}

	switch typ {
	case "":
		return nil, nil

	case TypePoint:
		coords, _ := obj.Member("coordinates")
		p, err := decodePosition(coords)
		if err != nil {
			return nil, malformed("point coordinates: %v", err)
		}
		return r.transform.Point(p), nil

	case TypeMultiPoint:
		coords, _ := obj.Member("coordinates")
		positions, err := decodePositions(coords)
		if err != nil {
			return nil, malformed("multipoint coordinates: %v", err)
		}
		mp := make(orb.MultiPoint, 0, len(positions))
		for _, p := range positions {
			mp = append(mp, r.transform.Point(p))
		}
		return mp, nil

	case TypeLineString:
		refs, err := arcRefs(obj)
		if err != nil {
			return nil, err
		}
		return r.lineString(refs)

	case TypeMultiLineString:
		sets, err := arcRefSets(obj)
		if err != nil {
			return nil, err
		}
		mls := make(orb.MultiLineString, 0, len(sets))
		for _, refs := range sets {
			ls, err := r.lineString(refs)
			if err != nil {
				return nil, err
			}
			mls = append(mls, ls)
		}
		return mls, nil

	case TypePolygon:
		sets, err := arcRefSets(obj)
		if err != nil {
			return nil, err
		}
		return r.polygon(sets)

	case TypeMultiPolygon:
		polys, err := arcRefPolygons(obj)
		if err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, sets := range polys {
			poly, err := r.polygon(sets)
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		return mp, nil

	case TypeGeometryCollection:
		members, err := collectionMembers(obj)
		if err != nil {
			return nil, err
		}
		coll := make(orb.Collection, 0, len(members))
		for i, m := range members {
			g, err := r.geometry(m)
			if err != nil {
				return nil, fmt.Errorf("geometry %d: %w", i, err)
			}
			if g != nil {
				coll = append(coll, g)
			}
		}
		return coll, nil

	default:
		return nil, &UnknownGeometryTypeError{Type: typ}
	}
}

// lineString concatenates the referenced arcs. Consecutive arcs share an
// endpoint, which is kept once.
func (r *reconstructor) lineString(refs []int) (orb.LineString, error) {
	var ls orb.LineString
	for i, ref := range refs {
		arc, err := r.arcs.Arc(ref)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			ls = ls[:len(ls)-1]
		}
		ls = append(ls, arc...)
	}
	return ls, nil
}

// ring resolves a polygon ring; the result must be closed.
func (r *reconstructor) ring(refs []int) (orb.Ring, error) {
	ls, err := r.lineString(refs)
	if err != nil {
		return nil, err
	}
	if len(ls) == 0 {
		return nil, malformed("empty polygon ring")
	}
	if !ls[0].Equal(ls[len(ls)-1]) {
		return nil, malformed("polygon ring is not closed: starts at %v, ends at %v", ls[0], ls[len(ls)-1])
	}
	return orb.Ring(ls), nil
}

func (r *reconstructor) polygon(sets [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(sets))
	for i, refs := range sets {
		ring, err := r.ring(refs)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// Helper functions for reading arc references

func arcRefs(obj *Value) ([]int, error) {
	v, ok := obj.Member("arcs")
	if !ok {
		return nil, malformed("geometry object has no arcs")
	}
	return decodeRefs(v)
}

func decodeRefs(v *Value) ([]int, error) {
	elems, err := v.Array()
	if err != nil {
		return nil, malformed("arc references: %v", err)
	}

	refs := make([]int, 0, len(elems))
	for _, e := range elems {
		i, err := e.Int()
		if err != nil {
			return nil, malformed("not a valid arc index, got %v", e.text)
		}
		refs = append(refs, int(i))
	}
	return refs, nil
}

func arcRefSets(obj *Value) ([][]int, error) {
	v, ok := obj.Member("arcs")
	if !ok {
		return nil, malformed("geometry object has no arcs")
	}
	return decodeRefSets(v)
}

func decodeRefSets(v *Value) ([][]int, error) {
	elems, err := v.Array()
	if err != nil {
		return nil, malformed("arc reference sets: %v", err)
	}

	sets := make([][]int, 0, len(elems))
	for _, e := range elems {
		refs, err := decodeRefs(e)
		if err != nil {
			return nil, err
		}
		sets = append(sets, refs)
	}
	return sets, nil
}

func arcRefPolygons(obj *Value) ([][][]int, error) {
	v, ok := obj.Member("arcs")
	if !ok {
		return nil, malformed("geometry object has no arcs")
	}

	elems, err := v.Array()
	if err != nil {
		return nil, malformed("polygon arc references: %v", err)
	}

	polys := make([][][]int, 0, len(elems))
	for _, e := range elems {
		sets, err := decodeRefSets(e)
		if err != nil {
			return nil, err
		}
		polys = append(polys, sets)
	}
	return polys, nil
}

func collectionMembers(obj *Value) ([]*Value, error) {
	v, ok := obj.Member("geometries")
	if !ok {
		return nil, nil
	}
	members, err := v.Array()
	if err != nil {
		return nil, malformed("geometries: %v", err)
	}
	return members, nil
}
