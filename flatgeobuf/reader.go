package flatgeobuf

import (
	"fmt"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	topojson "github.com/tingold/orb-topojson"
)

// Reader provides read access to a FlatGeobuf file.
type Reader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// NewReader opens a FlatGeobuf file. The file is memory-mapped.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &Reader{fgb: fgb}, nil
}

// NewReaderFromData creates a reader over an in-memory file.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &Reader{fgb: fgb}, nil
}

// Header returns the file metadata.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}
	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			header.Columns = append(header.Columns, ColumnInfo{
				Name:     string(col.Name()),
				Type:     flattypes.EnumNamesColumnType[col.Type()],
				Nullable: col.Nullable(),
			})
		}
	}

	return header
}

// Schema returns the store schema described by the file columns.
func (r *Reader) Schema() *topojson.Schema {
	h := r.fgb.Header()
	schema := topojson.NewSchema()
	for i := 0; i < h.ColumnsLength(); i++ {
		var col flattypes.Column
		if h.Columns(&col, i) {
			schema.Add(string(col.Name()), fieldType(col.Type()))
		}
	}
	return schema
}

// Search returns the features whose bounds intersect b, using the
// file's spatial index.
func (r *Reader) Search(b orb.Bound) ([]*geojson.Feature, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	found, err := r.fgb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf: search: %w", err)
	}

	features := make([]*geojson.Feature, 0, len(found))
	for _, ff := range found {
		f, err := convertFeature(ff, h)
		if err != nil {
			return nil, err
		}
		if f != nil {
			features = append(features, f)
		}
	}
	return features, nil
}

// ReadStore loads every feature into a store. Features come back in the
// order of the file's spatial index.
func (r *Reader) ReadStore() (*topojson.Store, error) {
	h := r.fgb.Header()
	schema := r.Schema()
	if h.FeaturesCount() == 0 {
		return topojson.NewStore(nil, schema), nil
	}
	if h.EnvelopeLength() < 4 {
		return nil, fmt.Errorf("%w: header has no envelope", ErrInvalidData)
	}

	features, err := r.Search(orb.Bound{
		Min: orb.Point{h.Envelope(0), h.Envelope(1)},
		Max: orb.Point{h.Envelope(2), h.Envelope(3)},
	})
	if err != nil {
		return nil, err
	}
	return topojson.NewStore(features, schema), nil
}

// Close releases the reader. The underlying mapping is released by the
// garbage collector.
func (r *Reader) Close() error {
	r.fgb = nil
	return nil
}

// ReadStore loads an in-memory FlatGeobuf file into a store.
func ReadStore(data []byte) (*topojson.Store, error) {
	r, err := NewReaderFromData(data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.ReadStore()
}

func convertFeature(ff *flattypes.Feature, h *flattypes.Header) (*geojson.Feature, error) {
	if ff == nil {
		return nil, nil
	}
	var g flattypes.Geometry
	if ff.Geometry(&g) == nil {
		return nil, nil
	}
	geom, err := decodeGeometry(&g)
	if err != nil {
		return nil, err
	}
	if geom == nil {
		return nil, nil
	}

	f := geojson.NewFeature(geom)
	if n := ff.PropertiesLength(); n > 0 {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(ff.Properties(i))
		}
		props, err := decodeProperties(data, h)
		if err != nil {
			return nil, err
		}
		f.Properties = props
	}
	return f, nil
}
