package flatgeobuf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	topojson "github.com/tingold/orb-topojson"
)

// generateStore creates a store of n random features of one kind.
func generateStore(r *rand.Rand, n int, kind string) *topojson.Store {
	features := make([]*geojson.Feature, 0, n)
	for i := 0; i < n; i++ {
		x := -180 + r.Float64()*359
		y := -90 + r.Float64()*179

		var geom orb.Geometry
		switch kind {
		case "point":
			geom = orb.Point{x, y}
		case "linestring":
			ls := make(orb.LineString, 10)
			for j := range ls {
				ls[j] = orb.Point{x + float64(j)*0.01, y + float64(j)*0.01}
			}
			geom = ls
		case "polygon":
			radius := 0.01 + r.Float64()*0.05
			ring := make(orb.Ring, 33)
			for j := 0; j < 32; j++ {
				angle := 2 * math.Pi * float64(j) / 32
				ring[j] = orb.Point{x + radius*math.Cos(angle), y + radius*math.Sin(angle)}
			}
			ring[32] = ring[0]
			geom = orb.Polygon{ring}
		}

		f := geojson.NewFeature(geom)
		f.Properties = geojson.Properties{
			"name":     fmt.Sprintf("Feature %d", i),
			"value":    r.Float64() * 1000,
			"rank":     int64(i),
			"active":   r.Intn(2) == 1,
			"category": fmt.Sprintf("cat_%d", r.Intn(10)),
		}
		features = append(features, f)
	}
	return topojson.NewStore(features, nil)
}

func TestSizeComparison(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping size comparison in short mode")
	}
	r := rand.New(rand.NewSource(42))

	t.Logf("%-12s | %-8s | %-10s | %-10s | %-10s", "Kind", "Features", "GeoJSON", "FGB", "FGB+Index")
	for _, kind := range []string{"point", "linestring", "polygon"} {
		for _, n := range []int{100, 1000} {
			store := generateStore(r, n, kind)

			fc := geojson.NewFeatureCollection()
			fc.Features = store.Features()
			geoJSON, err := json.Marshal(fc)
			if err != nil {
				t.Fatalf("JSON marshal failed: %v", err)
			}

			var plain, indexed bytes.Buffer
			if err := WriteStore(&plain, store, &Options{IncludeIndex: false}); err != nil {
				t.Fatalf("WriteStore failed: %v", err)
			}
			if err := WriteStore(&indexed, store, &Options{IncludeIndex: true}); err != nil {
				t.Fatalf("WriteStore failed: %v", err)
			}

			t.Logf("%-12s | %-8d | %-10s | %-10s | %-10s", kind, n,
				humanize.Bytes(uint64(len(geoJSON))),
				humanize.Bytes(uint64(plain.Len())),
				humanize.Bytes(uint64(indexed.Len())))
		}
	}
}

func BenchmarkWriteStore(b *testing.B) {
	for _, kind := range []string{"point", "polygon"} {
		store := generateStore(rand.New(rand.NewSource(42)), 1000, kind)
		b.Run(kind, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var buf bytes.Buffer
				if err := WriteStore(&buf, store, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkReadStore(b *testing.B) {
	var buf bytes.Buffer
	if err := WriteStore(&buf, generateStore(rand.New(rand.NewSource(42)), 1000, "polygon"), nil); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store, err := ReadStore(data)
		if err != nil {
			b.Fatal(err)
		}
		if store.Len() == 0 {
			b.Fatal("no features")
		}
	}
}

func BenchmarkSearch(b *testing.B) {
	var buf bytes.Buffer
	if err := WriteStore(&buf, generateStore(rand.New(rand.NewSource(42)), 10000, "point"), nil); err != nil {
		b.Fatal(err)
	}
	reader, err := NewReaderFromData(buf.Bytes())
	if err != nil {
		b.Fatal(err)
	}
	defer func() { _ = reader.Close() }()

	query := orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := reader.Search(query); err != nil {
			b.Fatal(err)
		}
	}
}
