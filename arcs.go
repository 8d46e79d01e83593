package topojson

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ArcTable holds the decoded arcs of a topology, indexed by position.
type ArcTable struct {
	arcs    [][]orb.Point
	present bool
}

// decodeArcs decodes the top-level arcs member. A missing or non-array
// member yields an absent table; referencing it later is an error.
func decodeArcs(v *Value, t Transform) (*ArcTable, error) {
	elems, err := v.Array()
	if err != nil {
		return &ArcTable{}, nil
	}

	arcs := make([][]orb.Point, 0, len(elems))
	for i, e := range elems {
		positions, err := decodePositions(e)
		if err != nil {
			return nil, malformed("arc %d: %v", i, err)
		}
		if len(positions) < 2 {
			return nil, malformed("arc %d has %d points, need at least 2", i, len(positions))
		}
		arcs = append(arcs, t.Arc(positions))
	}

	return &ArcTable{arcs: arcs, present: true}, nil
}

// Len returns the number of arcs.
func (a *ArcTable) Len() int {
	return len(a.arcs)
}

// Present reports whether the topology had an arcs array.
func (a *ArcTable) Present() bool {
	return a.present
}

// Arc resolves an arc reference. Negative references select arc ^ref
// (that is -ref-1) traversed back to front. The returned slice is a copy.
func (a *ArcTable) Arc(ref int) ([]orb.Point, error) {
	if !a.present {
		return nil, malformed("arc reference %d but topology has no arcs", ref)
	}

	index := ref
	if ref < 0 {
		index = ^ref
	}
	if index >= len(a.arcs) {
		return nil, &ArcIndexError{Ref: ref, Count: len(a.arcs)}
	}

	src := a.arcs[index]
	out := make([]orb.Point, len(src))
	if ref >= 0 {
		copy(out, src)
		return out, nil
	}
	for i, p := range src {
		out[len(src)-1-i] = p
	}
	return out, nil
}

// decodePosition reads an [x, y, ...] position; extra dimensions are dropped.
func decodePosition(v *Value) (orb.Point, error) {
	elems, err := v.Array()
	if err != nil {
		return orb.Point{}, err
	}
	if len(elems) < 2 {
		return orb.Point{}, fmt.Errorf("position needs 2 coordinates, got %d", len(elems))
	}

	var p orb.Point
	for i := 0; i < 2; i++ {
		if p[i], err = elems[i].Float(); err != nil {
			return orb.Point{}, err
		}
	}
	return p, nil
}

func decodePositions(v *Value) ([]orb.Point, error) {
	elems, err := v.Array()
	if err != nil {
		return nil, err
	}

	positions := make([]orb.Point, 0, len(elems))
	for i, e := range elems {
		p, err := decodePosition(e)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}
