package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tingold/orb-topojson/datasource"
	"github.com/tingold/orb-topojson/flatgeobuf"
)

var discard = slog.New(slog.DiscardHandler)

func shapesParams() datasource.Params {
	return datasource.Params{Name: "shapes", Type: "topojson", File: filepath.Join("..", "..", "testdata", "shapes.topojson")}
}

func openShapes(t *testing.T) datasource.Datasource {
	t.Helper()
	ds, err := datasource.Open(context.Background(), shapesParams())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return ds
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		x, y    float64
		wantErr bool
	}{
		{"1,2", 1, 2, false},
		{" -81.7 , 41.48 ", -81.7, 41.48, false},
		{"1", 0, 0, true},
		{"1,2,3", 0, 0, true},
		{"a,b", 0, 0, true},
	}

	for _, tt := range tests {
		p, err := parsePoint(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || p[0] != tt.x || p[1] != tt.y {
			t.Errorf("%q: expected (%v, %v), got %v, %v", tt.in, tt.x, tt.y, p, err)
		}
	}
}

func TestCollectLayers(t *testing.T) {
	dir := t.TempDir()
	layerFile := filepath.Join(dir, "layers.yaml")
	if err := os.WriteFile(layerFile, []byte("version: 1\nlayers:\n  - name: a\n    file: a.topojson\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	layers, err := collectLayers(layerFile, "flatgeobuf", []string{"b.fgb"})
	if err != nil {
		t.Fatalf("collectLayers failed: %v", err)
	}
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[0].Type != "topojson" || layers[0].Path() != filepath.Join(dir, "a.topojson") {
		t.Errorf("unexpected first layer %+v", layers[0])
	}
	if layers[1].Type != "flatgeobuf" || layers[1].File != "b.fgb" {
		t.Errorf("unexpected second layer %+v", layers[1])
	}
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	describe(&buf, shapesParams(), openShapes(t))

	out := buf.String()
	for _, want := range []string{"shapes (topojson)", "geometry:  Collection", "features:  4", "envelope:  10,20,12,22", "lanes", "int"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestPrintHits(t *testing.T) {
	ds := openShapes(t)

	var buf bytes.Buffer
	printHits(&buf, ds.FeaturesAtPoint([2]float64{11, 22}, 0))
	if !strings.Contains(buf.String(), "hits:      1") || !strings.Contains(buf.String(), "LineString") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeGeoJSON(&buf, openShapes(t)); err != nil {
		t.Fatalf("writeGeoJSON failed: %v", err)
	}

	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc.Type != "FeatureCollection" || len(doc.Features) != 4 {
		t.Errorf("expected FeatureCollection with 4 features, got %s with %d", doc.Type, len(doc.Features))
	}
}

func TestCheckArcs(t *testing.T) {
	if err := checkArcs(shapesParams(), discard); err != nil {
		t.Errorf("checkArcs failed: %v", err)
	}

	identity := datasource.Params{Name: "plain", Type: "topojson", Inline: `{"type": "Topology", "objects": {}, "arcs": [[[0, 0], [1, 1]]]}`}
	if err := checkArcs(identity, discard); err != nil {
		t.Errorf("checkArcs on unquantized input failed: %v", err)
	}
}

func TestExportFlatGeobuf(t *testing.T) {
	ds := openShapes(t)
	path := filepath.Join(t.TempDir(), "shapes.fgb")

	if err := exportFlatGeobuf(path, shapesParams(), ds, discard); err != nil {
		t.Fatalf("exportFlatGeobuf failed: %v", err)
	}

	r, err := flatgeobuf.NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer func() { _ = r.Close() }()

	h := r.Header()
	if h.Name != "shapes" || h.FeaturesCount != 4 || len(h.Columns) != 6 {
		t.Errorf("unexpected header %+v", h)
	}
}
