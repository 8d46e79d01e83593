package datasource

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Params are the host parameters of one datasource.
type Params struct {
	Name   string `yaml:"name,omitempty"`
	Type   string `yaml:"type"`
	File   string `yaml:"file,omitempty"`
	Inline string `yaml:"inline,omitempty"`
	// Base resolves a relative File.
	Base string `yaml:"base,omitempty"`

	Logger *slog.Logger `yaml:"-"`
}

// Validate checks that exactly one input is given.
func (p Params) Validate() error {
	if p.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidParams)
	}
	switch {
	case p.File == "" && p.Inline == "":
		return fmt.Errorf("%w: one of file or inline is required", ErrInvalidParams)
	case p.File != "" && p.Inline != "":
		return fmt.Errorf("%w: file and inline are mutually exclusive", ErrInvalidParams)
	}
	return nil
}

// Path returns File resolved against Base.
func (p Params) Path() string {
	if p.File == "" || filepath.IsAbs(p.File) || p.Base == "" {
		return p.File
	}
	return filepath.Join(p.Base, p.File)
}

// Source names the input for logs and errors.
func (p Params) Source() string {
	if p.Inline != "" {
		return "inline"
	}
	return p.Path()
}

func (p Params) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// LayerFile is the YAML document listing the layers to open.
type LayerFile struct {
	Version int      `yaml:"version"`
	Layers  []Params `yaml:"layers"`
}

// LoadLayers reads a layer file. Layers without a base resolve relative
// files against the layer file's directory.
func LoadLayers(path string) ([]Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer file: %w", err)
	}
	return ParseLayers(data, filepath.Dir(path))
}

// ParseLayers parses a layer file, using base for layers without one.
func ParseLayers(data []byte, base string) ([]Params, error) {
	var lf LayerFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("failed to parse layer file: %w", err)
	}
	if lf.Version != 1 {
		return nil, fmt.Errorf("unsupported layer file version: %d", lf.Version)
	}

	for i := range lf.Layers {
		l := &lf.Layers[i]
		if l.Type == "" {
			l.Type = "topojson"
		}
		if l.Base == "" {
			l.Base = base
		}
		if l.Name == "" {
			l.Name = fmt.Sprintf("layer%d", i)
		}
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.Name, err)
		}
	}
	return lf.Layers, nil
}
