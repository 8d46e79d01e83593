package flatgeobuf

import (
	"fmt"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType returns the FlatGeobuf type of a decoded geometry.
func geometryType(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Polygon:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// headerGeometryType is the common type of all geometries, or Unknown
// when they differ.
func headerGeometryType(geoms []orb.Geometry) flattypes.GeometryType {
	if len(geoms) == 0 {
		return flattypes.GeometryTypeUnknown
	}
	t := geometryType(geoms[0])
	for _, g := range geoms[1:] {
		if geometryType(g) != t {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

// encodeGeometry converts a geometry into a FlatGeobuf geometry table.
// It returns nil for types FlatGeobuf cannot hold.
func encodeGeometry(geom orb.Geometry, builder *flatbuffers.Builder) *writer.Geometry {
	g := writer.NewGeometry(builder)
	g.SetType(geometryType(geom))

	switch v := geom.(type) {
	case orb.Point:
		g.SetXY([]float64{v[0], v[1]})
	case orb.MultiPoint:
		g.SetXY(flatten(nil, v))
	case orb.LineString:
		g.SetXY(flatten(nil, v))
	case orb.MultiLineString:
		xy, ends := flattenParts(v)
		g.SetXY(xy)
		g.SetEnds(ends)
	case orb.Polygon:
		xy, ends := flattenParts(v)
		g.SetXY(xy)
		g.SetEnds(ends)
	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			parts = append(parts, *encodeGeometry(poly, builder))
		}
		g.SetParts(parts)
	case orb.Collection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			if part := encodeGeometry(child, builder); part != nil {
				parts = append(parts, *part)
			}
		}
		g.SetParts(parts)
	default:
		return nil
	}

	return g
}

func flatten[P ~[]orb.Point](xy []float64, points P) []float64 {
	for _, p := range points {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

// flattenParts flattens rings or lines into one coordinate array plus
// the cumulative end index of each part.
func flattenParts[L ~[]P, P ~[]orb.Point](parts L) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(parts))
	for _, part := range parts {
		xy = flatten(xy, part)
		ends = append(ends, uint32(len(xy)/2))
	}
	return xy, ends
}

// decodeGeometry converts a FlatGeobuf geometry table into an orb geometry.
// Unsupported types decode to nil. Part ends that run backwards fail with
// ErrInvalidData.
func decodeGeometry(g *flattypes.Geometry) (orb.Geometry, error) {
	switch g.Type() {
	case flattypes.GeometryTypePoint:
		if g.XyLength() < 2 {
			return nil, nil
		}
		return orb.Point{g.Xy(0), g.Xy(1)}, nil
	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(points(g, 0, g.XyLength()/2)), nil
	case flattypes.GeometryTypeLineString:
		return orb.LineString(points(g, 0, g.XyLength()/2)), nil
	case flattypes.GeometryTypeMultiLineString:
		parts, err := spans(g)
		if err != nil {
			return nil, err
		}
		var mls orb.MultiLineString
		for _, span := range parts {
			mls = append(mls, points(g, span[0], span[1]))
		}
		return mls, nil
	case flattypes.GeometryTypePolygon:
		return polygon(g)
	case flattypes.GeometryTypeMultiPolygon:
		mp := make(orb.MultiPolygon, 0, g.PartsLength())
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if !g.Parts(&part, i) {
				continue
			}
			poly, err := polygon(&part)
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		if len(mp) == 0 && g.XyLength() > 0 {
			poly, err := polygon(g)
			if err != nil {
				return nil, err
			}
			mp = append(mp, poly)
		}
		return mp, nil
	case flattypes.GeometryTypeGeometryCollection:
		c := make(orb.Collection, 0, g.PartsLength())
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if !g.Parts(&part, i) {
				continue
			}
			child, err := decodeGeometry(&part)
			if err != nil {
				return nil, err
			}
			if child != nil {
				c = append(c, child)
			}
		}
		return c, nil
	default:
		return nil, nil
	}
}

func polygon(g *flattypes.Geometry) (orb.Polygon, error) {
	parts, err := spans(g)
	if err != nil {
		return nil, err
	}
	var poly orb.Polygon
	for _, span := range parts {
		poly = append(poly, points(g, span[0], span[1]))
	}
	return poly, nil
}

// spans returns the [start, end) point ranges of each part. A geometry
// without ends is a single part. Ends must not decrease.
func spans(g *flattypes.Geometry) ([][2]int, error) {
	n := g.XyLength() / 2
	if g.EndsLength() == 0 {
		if n == 0 {
			return nil, nil
		}
		return [][2]int{{0, n}}, nil
	}

	result := make([][2]int, 0, g.EndsLength())
	start := 0
	for i := 0; i < g.EndsLength(); i++ {
		end := min(int(g.Ends(i)), n)
		if end < start {
			return nil, fmt.Errorf("%w: part %d ends at %d before its start %d", ErrInvalidData, i, end, start)
		}
		result = append(result, [2]int{start, end})
		start = end
	}
	return result, nil
}

func points(g *flattypes.Geometry, start, end int) []orb.Point {
	pts := make([]orb.Point, 0, end-start)
	for i := start; i < end; i++ {
		pts = append(pts, orb.Point{g.Xy(2 * i), g.Xy(2*i + 1)})
	}
	return pts
}
