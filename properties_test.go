package topojson

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestInferFieldType(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected FieldType
		typed    bool
	}{
		{"nil", nil, FieldString, false},
		{"bool", true, FieldBoolean, true},
		{"int64", int64(1), FieldInteger, true},
		{"int", 42, FieldInteger, true},
		{"float64", 1.1, FieldFloat, true},
		{"float32", float32(3.14), FieldFloat, true},
		{"string", "hello", FieldString, true},
		{"json int", json.Number("7"), FieldInteger, true},
		{"json float", json.Number("7.5"), FieldFloat, true},
		{"slice", []any{1, 2}, FieldString, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, typed := inferFieldType(tt.value)
			if result != tt.expected || typed != tt.typed {
				t.Errorf("expected (%v, %v), got (%v, %v)", tt.expected, tt.typed, result, typed)
			}
		})
	}
}

func TestFieldType_String(t *testing.T) {
	tests := map[FieldType]string{
		FieldString:  "str",
		FieldInteger: "int",
		FieldFloat:   "float",
		FieldBoolean: "bool",
	}
	for ft, expected := range tests {
		if ft.String() != expected {
			t.Errorf("expected %q, got %q", expected, ft.String())
		}
	}
}

func TestPropertyValue(t *testing.T) {
	doc := mustParse(t, `{"i": 1, "neg": -12, "f": 1.1, "exp": 1e3, "big": 123456789012345678901234567890,
		"over": 12345678901234567890,
		"b": false, "n": null, "s": "text", "arr": [1, "a"], "obj": {"k": 1}}`)

	tests := []struct {
		key      string
		expected any
	}{
		{"i", int64(1)},
		{"neg", int64(-12)},
		{"f", 1.1},
		{"exp", 1000.0},
		{"big", 1.2345678901234568e+29},
		{"over", float64(12345678901234567890)},
		{"b", false},
		{"n", nil},
		{"s", "text"},
		{"arr", `[1, "a"]`},
		{"obj", `{"k": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, ok := doc.Member(tt.key)
			if !ok {
				t.Fatalf("member %q not found", tt.key)
			}
			if got := propertyValue(m); got != tt.expected {
				t.Errorf("expected %#v, got %#v", tt.expected, got)
			}
		})
	}
}

func TestPropertyValue_UnicodeNormalization(t *testing.T) {
	precomposed := "Québec"
	decomposed := string([]rune{'Q', 'u', 'e', 0x0301, 'b', 'e', 'c'})
	escaped := `"Qu` + "\\" + `u00e9bec"`
	escapedDecomposed := `"Que` + "\\" + `u0301bec"`

	doc := mustParse(t, `{"a": `+escaped+`, "b": `+escapedDecomposed+`, "c": "`+decomposed+`"}`)

	for _, key := range []string{"a", "b", "c"} {
		m, _ := doc.Member(key)
		if got := propertyValue(m); got != precomposed {
			t.Errorf("%s: expected %q, got %q", key, precomposed, got)
		}
	}
}

func TestSchema_FirstSeenOrder(t *testing.T) {
	schema := NewSchema()
	schema.Observe("name", "a")
	schema.Observe("int", int64(1))
	schema.Observe("name", "b")
	schema.Observe("double", 1.5)
	schema.Observe("flag", true)

	fields := schema.Fields()
	types := schema.FieldTypes()
	expectedFields := []string{"name", "int", "double", "flag"}
	expectedTypes := []FieldType{FieldString, FieldInteger, FieldFloat, FieldBoolean}

	if len(fields) != len(types) {
		t.Fatalf("fields and types differ in length: %d vs %d", len(fields), len(types))
	}
	for i := range expectedFields {
		if fields[i] != expectedFields[i] {
			t.Errorf("field %d: expected %q, got %q", i, expectedFields[i], fields[i])
		}
		if types[i] != expectedTypes[i] {
			t.Errorf("type %d: expected %v, got %v", i, expectedTypes[i], types[i])
		}
	}
}

func TestSchema_ConflictResolvesToString(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   FieldType
	}{
		{"int then string", []any{int64(1), "x"}, FieldString},
		{"int then float", []any{int64(4), 4.5}, FieldString},
		{"bool then int", []any{true, int64(1)}, FieldString},
		{"string then int", []any{"x", int64(1)}, FieldString},
		{"same type", []any{int64(1), int64(2)}, FieldInteger},
		{"null does not change type", []any{1.5, nil, 2.5}, FieldFloat},
		{"null first", []any{nil, true}, FieldBoolean},
		{"only null", []any{nil, nil}, FieldString},
		{"conflict is sticky", []any{int64(1), "x", int64(2)}, FieldString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := NewSchema()
			for _, v := range tt.values {
				schema.Observe("f", v)
			}
			if got, _ := schema.Type("f"); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if schema.Len() != 1 {
				t.Errorf("expected 1 field, got %d", schema.Len())
			}
		})
	}
}

func TestSchema_AbsentFieldKeepsType(t *testing.T) {
	schema := NewSchema()
	props := []*Value{
		mustParse(t, `{"a": 1, "b": "x"}`),
		mustParse(t, `{"b": "y"}`),
		mustParse(t, `{"a": 2}`),
	}
	for _, p := range props {
		if _, err := extractProperties(p, schema); err != nil {
			t.Fatalf("extractProperties failed: %v", err)
		}
	}

	if got, _ := schema.Type("a"); got != FieldInteger {
		t.Errorf("expected a to stay int, got %v", got)
	}
}

func TestExtractProperties(t *testing.T) {
	schema := NewSchema()

	props, err := extractProperties(nil, schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props == nil || len(props) != 0 {
		t.Errorf("expected empty properties, got %v", props)
	}

	_, err = extractProperties(mustParse(t, `[1, 2]`), schema)
	if !errors.Is(err, ErrMalformedTopology) {
		t.Errorf("expected ErrMalformedTopology for array properties, got %v", err)
	}
}

func TestConformProperties(t *testing.T) {
	features := []*geojson.Feature{
		{Geometry: orb.Point{0, 0}, Properties: geojson.Properties{"code": int64(1), "v": 1.5}},
		{Geometry: orb.Point{1, 1}, Properties: geojson.Properties{"code": "E2", "v": 2.5}},
		{Geometry: orb.Point{2, 2}, Properties: geojson.Properties{"code": true, "v": nil}},
	}

	schema := NewSchema()
	for _, f := range features {
		for _, name := range []string{"code", "v"} {
			schema.Observe(name, f.Properties[name])
		}
	}
	conformProperties(features, schema)

	expected := []any{"1", "E2", "true"}
	for i, f := range features {
		if f.Properties["code"] != expected[i] {
			t.Errorf("feature %d: expected %#v, got %#v", i, expected[i], f.Properties["code"])
		}
	}
	if features[0].Properties["v"] != 1.5 {
		t.Errorf("expected float field untouched, got %#v", features[0].Properties["v"])
	}
	if features[2].Properties["v"] != nil {
		t.Errorf("expected null to stay nil, got %#v", features[2].Properties["v"])
	}
}

func TestInferSchema(t *testing.T) {
	features := []*geojson.Feature{
		{Geometry: orb.Point{0, 0}, Properties: geojson.Properties{"b": int64(1), "a": "x"}},
		{Geometry: orb.Point{1, 1}, Properties: geojson.Properties{"c": true}},
	}

	schema := inferSchema(features)
	expected := []string{"a", "b", "c"}
	fields := schema.Fields()
	if len(fields) != len(expected) {
		t.Fatalf("expected %d fields, got %d", len(expected), len(fields))
	}
	for i := range expected {
		if fields[i] != expected[i] {
			t.Errorf("field %d: expected %q, got %q", i, expected[i], fields[i])
		}
	}
}
