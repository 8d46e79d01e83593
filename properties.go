package topojson

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"

	"github.com/paulmach/orb/geojson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/text/unicode/norm"
)

// FieldType is the inferred type of a property column.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInteger
	FieldFloat
	FieldBoolean
)

// String returns the short type tag used by host engines: str, int, float or bool.
func (t FieldType) String() string {
	switch t {
	case FieldInteger:
		return "int"
	case FieldFloat:
		return "float"
	case FieldBoolean:
		return "bool"
	default:
		return "str"
	}
}

type fieldState struct {
	typ   FieldType
	typed bool // a non-null value has been seen
}

// Schema is the ordered set of property fields of a feature collection.
// Fields keep first-seen order. A field seen with two different
// non-null types becomes a string field.
type Schema struct {
	fields *orderedmap.OrderedMap[string, *fieldState]
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{fields: orderedmap.New[string, *fieldState]()}
}

// Add declares a field with a known type. Declaring an existing field
// with another type turns it into a string field.
func (s *Schema) Add(name string, t FieldType) {
	s.observeType(name, t, true)
}

// Observe records one property value. Nil values register the field
// without typing it.
func (s *Schema) Observe(name string, value any) {
	t, ok := inferFieldType(value)
	s.observeType(name, t, ok)
}

func (s *Schema) observeType(name string, t FieldType, typed bool) {
	f, ok := s.fields.Get(name)
	if !ok {
		f = &fieldState{}
		s.fields.Set(name, f)
	}
	if !typed {
		return
	}
	if !f.typed {
		f.typ, f.typed = t, true
		return
	}
	if f.typ != t {
		f.typ = FieldString
	}
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return s.fields.Len()
}

// Fields returns the field names in first-seen order.
func (s *Schema) Fields() []string {
	names := make([]string, 0, s.fields.Len())
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// FieldTypes returns the field types aligned with Fields.
func (s *Schema) FieldTypes() []FieldType {
	types := make([]FieldType, 0, s.fields.Len())
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		types = append(types, pair.Value.typ)
	}
	return types
}

// Type returns the type of the named field.
func (s *Schema) Type(name string) (FieldType, bool) {
	f, ok := s.fields.Get(name)
	if !ok {
		return FieldString, false
	}
	return f.typ, true
}

// inferFieldType determines the field type for a Go value.
// It reports false for nil.
func inferFieldType(value any) (FieldType, bool) {
	switch value.(type) {
	case nil:
		return FieldString, false
	case bool:
		return FieldBoolean, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return FieldInteger, true
	case float32, float64:
		return FieldFloat, true
	case json.Number:
		if _, err := value.(json.Number).Int64(); err == nil {
			return FieldInteger, true
		}
		return FieldFloat, true
	default:
		return FieldString, true
	}
}

// extractProperties converts a properties member into typed values and
// records each key in the schema. A missing or null member gives an
// empty property map.
func extractProperties(v *Value, schema *Schema) (geojson.Properties, error) {
	props := make(geojson.Properties)
	if v.IsNull() {
		return props, nil
	}
	if v.Kind() != KindObject {
		return nil, malformed("properties must be an object, got %s", v.Kind())
	}

	err := v.Each(func(key string, member *Value) error {
		value := propertyValue(member)
		props[key] = value
		schema.Observe(key, value)
		return nil
	})
	return props, err
}

// propertyValue maps a JSON value onto string, int64, float64, bool or nil.
// Strings are NFC-normalized; arrays and objects keep their JSON text.
// Whole numbers outside the int64 range become float64 and may lose
// precision.
func propertyValue(v *Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		if i, err := v.Int(); err == nil {
			return i
		}
		if f, err := v.Float(); err == nil {
			return f
		}
		return v.text
	case KindString:
		return norm.NFC.String(v.text)
	default:
		return v.Raw()
	}
}

// conformProperties rewrites values of string fields that were stored
// with another type, so every value matches its schema type.
func conformProperties(features []*geojson.Feature, schema *Schema) {
	for _, f := range features {
		for name, value := range f.Properties {
			if value == nil {
				continue
			}
			if t, ok := schema.Type(name); ok && t == FieldString {
				if _, isString := value.(string); !isString {
					f.Properties[name] = toString(value)
				}
			}
		}
	}
}

// inferSchema builds a schema from features that carry no declared
// column order. Keys of each feature are visited in sorted order.
func inferSchema(features []*geojson.Feature) *Schema {
	schema := NewSchema()
	for _, f := range features {
		for _, name := range slices.Sorted(maps.Keys(f.Properties)) {
			schema.Observe(name, f.Properties[name])
		}
	}
	return schema
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		// For other types, use JSON encoding
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
