// Command server decodes a TopoJSON layer once and serves it as
// FlatGeobuf and GeoJSON, with point and bound queries.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	topojson "github.com/tingold/orb-topojson"
	"github.com/tingold/orb-topojson/datasource"
	"github.com/tingold/orb-topojson/flatgeobuf"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	addr := flag.String("addr", "localhost:8080", "Listen address")
	file := flag.String("file", "../../testdata/shapes.topojson", "TopoJSON file to serve")
	clientDir := flag.String("client", "", "Optional directory of static client files")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	ds, err := datasource.Open(ctx, datasource.Params{Name: "data", Type: "topojson", File: *file, Logger: logger})
	if err != nil {
		return err
	}
	h, err := newHandler(ds, *clientDir, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: *addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server starting", "addr", "http://"+*addr, "file", *file)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

type handler struct {
	ds      datasource.Datasource
	fgb     []byte
	geojson []byte
	static  http.Handler
	logger  *slog.Logger
}

// newHandler encodes ds once in both output formats.
func newHandler(ds datasource.Datasource, clientDir string, logger *slog.Logger) (*handler, error) {
	schema := topojson.NewSchema()
	types := ds.FieldTypes()
	for i, name := range ds.Fields() {
		schema.Add(name, types[i])
	}

	var buf bytes.Buffer
	opts := flatgeobuf.DefaultOptions()
	opts.Name = "data"
	opts.Logger = logger
	if err := flatgeobuf.WriteStore(&buf, topojson.NewStore(ds.AllFeatures(), schema), opts); err != nil && !errors.Is(err, flatgeobuf.ErrEmptyStore) {
		return nil, fmt.Errorf("failed to create FlatGeobuf: %w", err)
	}

	gj, err := marshalFeatures(ds.AllFeatures())
	if err != nil {
		return nil, err
	}

	h := &handler{ds: ds, fgb: buf.Bytes(), geojson: gj, logger: logger}
	if clientDir != "" {
		h.static = http.FileServer(http.Dir(clientDir))
	}
	logger.Info("encoded", "fgb", humanize.Bytes(uint64(len(h.fgb))), "geojson", humanize.Bytes(uint64(len(h.geojson))))
	return h, nil
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	switch r.URL.Path {
	case "/data.fgb":
		if len(h.fgb) == 0 {
			http.Error(w, "no features", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(h.fgb)
	case "/data.geojson":
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(h.geojson)
	case "/features":
		h.serveQuery(w, r)
	case "/at":
		h.serveAt(w, r)
	default:
		if h.static == nil {
			http.NotFound(w, r)
			return
		}
		h.static.ServeHTTP(w, r)
	}
}

// serveQuery answers /features?bbox=minx,miny,maxx,maxy&fields=a,b.
func (h *handler) serveQuery(w http.ResponseWriter, r *http.Request) {
	var q datasource.Query
	if s := r.URL.Query().Get("bbox"); s != "" {
		v, err := parseFloats(s, 4)
		if err != nil {
			http.Error(w, "invalid bbox: "+err.Error(), http.StatusBadRequest)
			return
		}
		b := orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}
		q.Bound = &b
	}
	if s := r.URL.Query().Get("fields"); s != "" {
		q.PropertyNames = strings.Split(s, ",")
	}

	features, err := h.ds.Features(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeFeatures(w, features)
}

// serveAt answers /at?x=..&y=..&tol=...
func (h *handler) serveAt(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	x, errX := strconv.ParseFloat(v.Get("x"), 64)
	y, errY := strconv.ParseFloat(v.Get("y"), 64)
	if err := errors.Join(errX, errY); err != nil {
		http.Error(w, "invalid point: "+err.Error(), http.StatusBadRequest)
		return
	}
	var tol float64
	if s := v.Get("tol"); s != "" {
		var err error
		if tol, err = strconv.ParseFloat(s, 64); err != nil {
			http.Error(w, "invalid tol: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	h.writeFeatures(w, h.ds.FeaturesAtPoint(orb.Point{x, y}, tol))
}

func (h *handler) writeFeatures(w http.ResponseWriter, features []*geojson.Feature) {
	data, err := marshalFeatures(features)
	if err != nil {
		h.logger.Error("encode failed", "err", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func marshalFeatures(features []*geojson.Feature) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return data, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
