package datasource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	topojson "github.com/tingold/orb-topojson"
	"github.com/tingold/orb-topojson/flatgeobuf"
)

// Factory loads one datasource. Errors are reported to the caller of
// Open as an *OpenError.
type Factory func(ctx context.Context, p Params) (Datasource, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{
		"topojson":   openTopoJSON,
		"flatgeobuf": openFlatGeobuf,
	}
)

// Register adds a datasource type. Registering an existing name replaces
// its factory.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = f
}

// Types returns the registered type names, sorted.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open validates p and loads the datasource of type p.Type. The data is
// read and decoded before Open returns.
func Open(ctx context.Context, p Params) (Datasource, error) {
	if err := p.Validate(); err != nil {
		return nil, &OpenError{Type: p.Type, Source: p.Source(), Err: err}
	}

	mu.RLock()
	factory, ok := registry[p.Type]
	mu.RUnlock()
	if !ok {
		return nil, &OpenError{Type: p.Type, Source: p.Source(), Err: fmt.Errorf("%w: %q", ErrUnknownType, p.Type)}
	}
	if err := ctx.Err(); err != nil {
		return nil, &OpenError{Type: p.Type, Source: p.Source(), Err: err}
	}

	start := time.Now()
	ds, err := factory(ctx, p)
	if err != nil {
		var openErr *OpenError
		if errors.As(err, &openErr) {
			return nil, err
		}
		return nil, &OpenError{Type: p.Type, Source: p.Source(), Err: err}
	}

	p.logger().Info("datasource opened",
		"name", p.Name,
		"type", p.Type,
		"source", p.Source(),
		"features", len(ds.AllFeatures()),
		"fields", len(ds.Fields()),
		"elapsed", time.Since(start),
	)
	return ds, nil
}

func openTopoJSON(_ context.Context, p Params) (Datasource, error) {
	data, err := ReadSource(p)
	if err != nil {
		return nil, err
	}
	store, err := topojson.Load(data, &topojson.Options{Logger: p.logger()})
	if err != nil {
		return nil, err
	}
	return FromStore("topojson", store), nil
}

func openFlatGeobuf(_ context.Context, p Params) (Datasource, error) {
	data, err := ReadSource(p)
	if err != nil {
		return nil, err
	}
	store, err := flatgeobuf.ReadStore(data)
	if err != nil {
		return nil, err
	}
	return FromStore("flatgeobuf", store), nil
}
