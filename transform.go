package topojson

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Transform converts quantized positions into absolute coordinates.
// The zero value is not usable; use IdentityTransform or NewTransform.
type Transform struct {
	Scale     [2]float64
	Translate [2]float64

	quantized bool
}

// IdentityTransform returns the transform of a topology without a
// transform member: positions are absolute and arcs are not delta-encoded.
func IdentityTransform() Transform {
	return Transform{Scale: [2]float64{1, 1}}
}

// NewTransform returns a quantizing transform.
func NewTransform(scale, translate [2]float64) Transform {
	return Transform{Scale: scale, Translate: translate, quantized: true}
}

// Quantized reports whether positions are quantized and arcs delta-encoded.
func (t Transform) Quantized() bool { return t.quantized }

// decodeTransform reads the transform member. An absent or null member
// yields the identity transform.
func decodeTransform(v *Value) (Transform, error) {
	if v.IsNull() {
		return IdentityTransform(), nil
	}
	if v.Kind() != KindObject {
		return Transform{}, malformed("transform must be an object, got %s", v.Kind())
	}

	scaleValue, okScale := v.Member("scale")
	translateValue, okTranslate := v.Member("translate")
	if !okScale || !okTranslate {
		return Transform{}, malformed("transform requires both scale and translate")
	}

	scale, err := numberPair(scaleValue)
	if err != nil {
		return Transform{}, malformed("transform scale: %v", err)
	}
	if scale[0] == 0 || scale[1] == 0 {
		return Transform{}, malformed("transform scale must be non-zero, got %v", scale)
	}

	translate, err := numberPair(translateValue)
	if err != nil {
		return Transform{}, malformed("transform translate: %v", err)
	}

	return NewTransform(scale, translate), nil
}

func numberPair(v *Value) ([2]float64, error) {
	elems, err := v.Array()
	if err != nil {
		return [2]float64{}, err
	}
	if len(elems) != 2 {
		return [2]float64{}, fmt.Errorf("expected a pair, got %d numbers", len(elems))
	}

	var pair [2]float64
	for i, e := range elems {
		if pair[i], err = e.Float(); err != nil {
			return [2]float64{}, err
		}
	}
	return pair, nil
}

// Point converts one quantized position. Point and MultiPoint
// coordinates are quantized but never delta-encoded.
func (t Transform) Point(p orb.Point) orb.Point {
	if !t.quantized {
		return p
	}
	return orb.Point{
		p[0]*t.Scale[0] + t.Translate[0],
		p[1]*t.Scale[1] + t.Translate[1],
	}
}

// Arc decodes a delta-encoded arc by running a prefix sum over the
// deltas and applying scale and translate to each sum.
func (t Transform) Arc(deltas []orb.Point) []orb.Point {
	out := make([]orb.Point, len(deltas))
	if !t.quantized {
		copy(out, deltas)
		return out
	}

	var x, y float64
	for i, d := range deltas {
		x += d[0]
		y += d[1]
		out[i] = orb.Point{
			x*t.Scale[0] + t.Translate[0],
			y*t.Scale[1] + t.Translate[1],
		}
	}
	return out
}

// Quantize is the inverse of Arc: it maps absolute coordinates back onto
// the quantization grid and differences consecutive positions.
func (t Transform) Quantize(arc []orb.Point) []orb.Point {
	out := make([]orb.Point, len(arc))
	if !t.quantized {
		copy(out, arc)
		return out
	}

	var px, py float64
	for i, p := range arc {
		qx := math.Round((p[0] - t.Translate[0]) / t.Scale[0])
		qy := math.Round((p[1] - t.Translate[1]) / t.Scale[1])
		out[i] = orb.Point{qx - px, qy - py}
		px, py = qx, qy
	}
	return out
}
