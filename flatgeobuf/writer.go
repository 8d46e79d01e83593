package flatgeobuf

import (
	"fmt"
	"io"

	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	topojson "github.com/tingold/orb-topojson"
)

// WriteStore writes every feature of store as FlatGeobuf. Columns follow
// the store schema. Features without geometry cannot be represented and
// are skipped.
func WriteStore(w io.Writer, store *topojson.Store, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := opts.logger()

	features := make([]*geojson.Feature, 0, store.Len())
	geoms := make([]orb.Geometry, 0, store.Len())
	for _, f := range store.Features() {
		if f.Geometry == nil {
			continue
		}
		features = append(features, f)
		geoms = append(geoms, f.Geometry)
	}
	if len(features) == 0 {
		return ErrEmptyStore
	}
	if skipped := store.Len() - len(features); skipped > 0 {
		log.Warn("skipping features without geometry", "count", skipped)
	}

	builder := flatbuffers.NewBuilder(4096)
	l := newLayout(store.Schema())

	header := writer.NewHeader(builder)
	header.SetGeometryType(headerGeometryType(geoms))
	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}
	if len(l.names) > 0 {
		header.SetColumns(l.columns(builder))
	}
	if opts.CRS != nil {
		crs := writer.NewCrs(builder)
		crs.SetOrg("EPSG")
		if opts.CRS.Code > 0 {
			crs.SetCode(int32(opts.CRS.Code))
		}
		if opts.CRS.Name != "" {
			crs.SetName(opts.CRS.Name)
		}
		if opts.CRS.Description != "" {
			crs.SetDescription(opts.CRS.Description)
		}
		header.SetCrs(crs)
	}

	gen := &storeFeatureGenerator{features: features, layout: l}
	fgbWriter := writer.NewWriter(header, opts.IncludeIndex, gen, nil)
	if _, err := fgbWriter.Write(w); err != nil {
		return fmt.Errorf("flatgeobuf: write: %w", err)
	}

	log.Debug("flatgeobuf written",
		"features", len(features),
		"columns", len(l.names),
		"index", opts.IncludeIndex,
	)
	return nil
}

// storeFeatureGenerator feeds store features to the FlatGeobuf writer.
type storeFeatureGenerator struct {
	features []*geojson.Feature
	layout   *layout
	index    int
}

func (g *storeFeatureGenerator) Generate() *writer.Feature {
	for g.index < len(g.features) {
		f := g.features[g.index]
		g.index++

		builder := flatbuffers.NewBuilder(1024)
		geom := encodeGeometry(f.Geometry, builder)
		if geom == nil {
			continue
		}

		feature := writer.NewFeature(builder)
		feature.SetGeometry(geom)
		if props := g.layout.encodeProperties(f.Properties); len(props) > 0 {
			feature.SetProperties(props)
		}
		return feature
	}
	return nil
}
