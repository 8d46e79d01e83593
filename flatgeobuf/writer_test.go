package flatgeobuf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	topojson "github.com/tingold/orb-topojson"
)

func loadShapes(t testing.TB) *topojson.Store {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "testdata", "shapes.topojson"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	store, err := topojson.Load(data, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return store
}

func TestWriteStore_Magic(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStore(&buf, loadShapes(t), nil); err != nil {
		t.Fatalf("WriteStore failed: %v", err)
	}

	data := buf.Bytes()
	if len(data) < 8 {
		t.Fatal("output too short")
	}
	expectedMagic := []byte{0x66, 0x67, 0x62, 0x03, 0x66, 0x67, 0x62, 0x00}
	for i, b := range expectedMagic {
		if data[i] != b {
			t.Errorf("magic byte %d: expected 0x%02x, got 0x%02x", i, b, data[i])
		}
	}
}

func TestWriteStore_Empty(t *testing.T) {
	err := WriteStore(&bytes.Buffer{}, topojson.NewStore(nil, nil), nil)
	if !errors.Is(err, ErrEmptyStore) {
		t.Errorf("expected ErrEmptyStore, got %v", err)
	}

	nullOnly := topojson.NewStore([]*geojson.Feature{{Properties: geojson.Properties{"a": int64(1)}}}, nil)
	err = WriteStore(&bytes.Buffer{}, nullOnly, nil)
	if !errors.Is(err, ErrEmptyStore) {
		t.Errorf("expected ErrEmptyStore for null geometries, got %v", err)
	}
}

func TestWriteStore_IndexSize(t *testing.T) {
	store := loadShapes(t)

	var withIndex, withoutIndex bytes.Buffer
	if err := WriteStore(&withIndex, store, &Options{IncludeIndex: true}); err != nil {
		t.Fatalf("WriteStore failed: %v", err)
	}
	if err := WriteStore(&withoutIndex, store, &Options{IncludeIndex: false}); err != nil {
		t.Fatalf("WriteStore failed: %v", err)
	}

	if withIndex.Len() <= withoutIndex.Len() {
		t.Errorf("expected index to add bytes: %d vs %d", withIndex.Len(), withoutIndex.Len())
	}
}

func TestWriteStore_SkipsNullGeometry(t *testing.T) {
	features := []*geojson.Feature{
		{Properties: geojson.Properties{"name": "nowhere"}},
		{Geometry: orb.Point{1, 2}, Properties: geojson.Properties{"name": "here"}},
	}

	var buf bytes.Buffer
	if err := WriteStore(&buf, topojson.NewStore(features, nil), nil); err != nil {
		t.Fatalf("WriteStore failed: %v", err)
	}

	r, err := NewReaderFromData(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromData failed: %v", err)
	}
	if count := r.Header().FeaturesCount; count != 1 {
		t.Errorf("expected 1 feature, got %d", count)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if !opts.IncludeIndex {
		t.Error("expected IncludeIndex to default to true")
	}
	if opts.CRS == nil || opts.CRS.Code != 4326 {
		t.Errorf("expected WGS84 CRS, got %+v", opts.CRS)
	}
}
