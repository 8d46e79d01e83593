// Command topojson-info loads TopoJSON (or FlatGeobuf) datasources and
// prints their schema, envelope and geometry kind. It can also dump the
// features as GeoJSON, export them as FlatGeobuf, and verify that arcs
// survive re-quantization.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	topojson "github.com/tingold/orb-topojson"
	"github.com/tingold/orb-topojson/datasource"
	"github.com/tingold/orb-topojson/flatgeobuf"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "topojson-info: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	layerFile := flag.String("layers", "", "YAML layer file listing datasources to open")
	typ := flag.String("type", "topojson", "Datasource type for files given as arguments")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dumpGeoJSON := flag.Bool("geojson", false, "Write the features of each datasource to stdout as GeoJSON")
	fgbOut := flag.String("fgb", "", "Export the first datasource to this FlatGeobuf file")
	check := flag.Bool("check", false, "Verify that every arc survives re-quantization")
	at := flag.String("at", "", "List features at point \"x,y\"")
	tol := flag.Float64("tol", 0, "Tolerance for -at")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid -log-level: %w", err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	layers, err := collectLayers(*layerFile, *typ, flag.Args())
	if err != nil {
		return err
	}
	if len(layers) == 0 {
		flag.Usage()
		return errors.New("no datasource given")
	}
	for i := range layers {
		layers[i].Logger = logger
	}

	sources := make([]datasource.Datasource, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range layers {
		g.Go(func() error {
			ds, err := datasource.Open(gctx, p)
			if err != nil {
				return err
			}
			sources[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var point *orb.Point
	if *at != "" {
		p, err := parsePoint(*at)
		if err != nil {
			return err
		}
		point = &p
	}

	for i, ds := range sources {
		if *dumpGeoJSON {
			if err := writeGeoJSON(os.Stdout, ds); err != nil {
				return err
			}
			continue
		}
		describe(os.Stdout, layers[i], ds)
		if point != nil {
			printHits(os.Stdout, ds.FeaturesAtPoint(*point, *tol))
		}
	}

	if *check {
		for _, p := range layers {
			if p.Type != "topojson" {
				continue
			}
			if err := checkArcs(p, logger); err != nil {
				return err
			}
		}
	}

	if *fgbOut != "" {
		return exportFlatGeobuf(*fgbOut, layers[0], sources[0], logger)
	}
	return nil
}

func collectLayers(layerFile, typ string, args []string) ([]datasource.Params, error) {
	var layers []datasource.Params
	if layerFile != "" {
		l, err := datasource.LoadLayers(layerFile)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l...)
	}
	for _, arg := range args {
		layers = append(layers, datasource.Params{Name: arg, Type: typ, File: arg})
	}
	return layers, nil
}

func parsePoint(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("invalid point %q, want \"x,y\"", s)
	}
	var p orb.Point
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
		}
		p[i] = f
	}
	return p, nil
}

func describe(w io.Writer, p datasource.Params, ds datasource.Datasource) {
	desc := ds.Describe()
	fmt.Fprintf(w, "%s (%s)\n", p.Name, desc.Type)
	if p.File != "" {
		if fi, err := os.Stat(p.Path()); err == nil {
			fmt.Fprintf(w, "  size:      %s\n", humanize.Bytes(uint64(fi.Size())))
		}
	}
	fmt.Fprintf(w, "  geometry:  %s\n", desc.GeometryType)
	fmt.Fprintf(w, "  features:  %s\n", humanize.Comma(int64(len(ds.AllFeatures()))))
	env := ds.Envelope()
	fmt.Fprintf(w, "  envelope:  %g,%g,%g,%g\n", env.Min[0], env.Min[1], env.Max[0], env.Max[1])
	fmt.Fprintf(w, "  fields:\n")
	types := ds.FieldTypes()
	for i, name := range ds.Fields() {
		fmt.Fprintf(w, "    %-24s %s\n", name, types[i])
	}
}

func printHits(w io.Writer, hits []*geojson.Feature) {
	fmt.Fprintf(w, "  hits:      %d\n", len(hits))
	for _, f := range hits {
		props, _ := json.Marshal(f.Properties)
		fmt.Fprintf(w, "    %s %s\n", f.Geometry.GeoJSONType(), props)
	}
}

func writeGeoJSON(w io.Writer, ds datasource.Datasource) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range ds.AllFeatures() {
		fc.Append(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// checkArcs decodes the layer again and verifies that quantizing each
// decoded arc and decoding it back reproduces the arc.
func checkArcs(p datasource.Params, logger *slog.Logger) error {
	data, err := datasource.ReadSource(p)
	if err != nil {
		return err
	}
	topo, err := topojson.Decode(data, &topojson.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("%s: %w", p.Source(), err)
	}
	if !topo.Transform.Quantized() {
		logger.Info("not quantized, nothing to check", "layer", p.Name)
		return nil
	}

	worst := 0.0
	for i := 0; i < topo.Arcs.Len(); i++ {
		arc, err := topo.Arcs.Arc(i)
		if err != nil {
			return err
		}
		back := topo.Transform.Arc(topo.Transform.Quantize(arc))
		for j := range arc {
			worst = math.Max(worst, math.Abs(arc[j][0]-back[j][0]))
			worst = math.Max(worst, math.Abs(arc[j][1]-back[j][1]))
		}
	}

	limit := math.Max(topo.Transform.Scale[0], topo.Transform.Scale[1]) / 2
	logger.Info("arc check", "layer", p.Name, "arcs", topo.Arcs.Len(), "max_error", worst)
	if worst > limit {
		return fmt.Errorf("%s: arcs drift by %g after re-quantization", p.Name, worst)
	}
	return nil
}

func exportFlatGeobuf(path string, p datasource.Params, ds datasource.Datasource, logger *slog.Logger) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	store := topojson.NewStore(ds.AllFeatures(), schemaOf(ds))
	opts := flatgeobuf.DefaultOptions()
	opts.Name = p.Name
	opts.Logger = logger
	if err := flatgeobuf.WriteStore(f, store, opts); err != nil {
		return err
	}

	if fi, err := f.Stat(); err == nil {
		logger.Info("exported", "path", path, "size", humanize.Bytes(uint64(fi.Size())))
	}
	return nil
}

func schemaOf(ds datasource.Datasource) *topojson.Schema {
	schema := topojson.NewSchema()
	types := ds.FieldTypes()
	for i, name := range ds.Fields() {
		schema.Add(name, types[i])
	}
	return schema
}
