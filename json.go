package topojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind is the type tag of a JSON Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{"null", "bool", "number", "string", "array", "object"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// TypeError is returned by Value accessors when the value has another kind.
// It unwraps to ErrMalformedTopology.
type TypeError struct {
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
}

func (e *TypeError) Unwrap() error { return ErrMalformedTopology }

// Value is a parsed JSON value. Object members keep document order.
type Value struct {
	kind Kind
	b    bool
	text string // unescaped string, or the number literal
	raw  []byte // source text of arrays and objects
	arr  []*Value
	obj  *orderedmap.OrderedMap[string, *Value]
}

// ParseValue parses a JSON document into a Value tree.
func ParseValue(data []byte) (*Value, error) {
	raw, dt, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, err
	}
	return buildValue(raw, dt)
}

func buildValue(raw []byte, dt jsonparser.ValueType) (*Value, error) {
	switch dt {
	case jsonparser.Null:
		return &Value{kind: KindNull}, nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return nil, err
		}
		return &Value{kind: KindBool, b: b}, nil

	case jsonparser.Number:
		return &Value{kind: KindNumber, text: string(raw)}, nil

	case jsonparser.String:
		s, err := parseString(raw)
		if err != nil {
			return nil, err
		}
		return &Value{kind: KindString, text: s}, nil

	case jsonparser.Array:
		v := &Value{kind: KindArray, raw: raw}
		var inner error
		_, err := jsonparser.ArrayEach(raw, func(value []byte, dt jsonparser.ValueType, _ int, _ error) {
			if inner != nil {
				return
			}
			elem, err := buildValue(value, dt)
			if err != nil {
				inner = err
				return
			}
			v.arr = append(v.arr, elem)
		})
		if err != nil {
			return nil, err
		}
		if inner != nil {
			return nil, inner
		}
		return v, nil

	case jsonparser.Object:
		v := &Value{kind: KindObject, raw: raw, obj: orderedmap.New[string, *Value]()}
		err := jsonparser.ObjectEach(raw, func(key, value []byte, dt jsonparser.ValueType, _ int) error {
			elem, err := buildValue(value, dt)
			if err != nil {
				return err
			}
			v.obj.Set(string(key), elem)
			return nil
		})
		if errors.Is(err, jsonparser.MalformedStringEscapeError) {
			v.obj = orderedmap.New[string, *Value]()
			err = eachMember(raw, func(key string, value []byte, dt jsonparser.ValueType) error {
				elem, err := buildValue(value, dt)
				if err != nil {
					return err
				}
				v.obj.Set(key, elem)
				return nil
			})
		}
		if err != nil {
			return nil, err
		}
		return v, nil

	default:
		return nil, fmt.Errorf("topojson: unexpected JSON token %s", dt)
	}
}

// parseString unescapes the body of a string token. jsonparser rejects
// lone UTF-16 surrogates, which encoding/json decodes to U+FFFD.
func parseString(raw []byte) (string, error) {
	if s, err := jsonparser.ParseString(raw); err == nil {
		return s, nil
	}
	quoted := make([]byte, 0, len(raw)+2)
	quoted = append(append(append(quoted, '"'), raw...), '"')
	var s string
	if err := json.Unmarshal(quoted, &s); err != nil {
		return "", fmt.Errorf("topojson: invalid string %s: %w", quoted, err)
	}
	return s, nil
}

// eachMember walks the members of an object in document order with
// encoding/json tokens. It serves objects whose keys jsonparser cannot
// unescape.
func eachMember(raw []byte, fn func(key string, value []byte, dt jsonparser.ValueType) error) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("topojson: unexpected object key %v", tok)
		}
		var member json.RawMessage
		if err := dec.Decode(&member); err != nil {
			return err
		}
		value, dt, _, err := jsonparser.Get(member)
		if err != nil {
			return err
		}
		if err := fn(key, value, dt); err != nil {
			return err
		}
	}
	return nil
}

// Kind returns the type tag of v. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether v is absent or JSON null.
func (v *Value) IsNull() bool { return v.Kind() == KindNull }

// Bool returns the value of a boolean.
func (v *Value) Bool() (bool, error) {
	if v.Kind() != KindBool {
		return false, &TypeError{Want: KindBool, Got: v.Kind()}
	}
	return v.b, nil
}

// Float returns the value of a number.
func (v *Value) Float() (float64, error) {
	if v.Kind() != KindNumber {
		return 0, &TypeError{Want: KindNumber, Got: v.Kind()}
	}
	f, err := jsonparser.ParseFloat([]byte(v.text))
	if err != nil {
		return 0, fmt.Errorf("number %q: %w", v.text, err)
	}
	return f, nil
}

// Int returns the value of a whole-number literal. Literals with a
// fraction or exponent, and literals outside the int64 range, fail.
func (v *Value) Int() (int64, error) {
	if v.Kind() != KindNumber {
		return 0, &TypeError{Want: KindNumber, Got: v.Kind()}
	}
	return jsonparser.ParseInt([]byte(v.text))
}

// IsInteger reports whether v is a number written as a whole-number literal.
func (v *Value) IsInteger() bool {
	_, err := v.Int()
	return err == nil
}

// Text returns the unescaped content of a string.
func (v *Value) Text() (string, error) {
	if v.Kind() != KindString {
		return "", &TypeError{Want: KindString, Got: v.Kind()}
	}
	return v.text, nil
}

// Array returns the elements of an array.
func (v *Value) Array() ([]*Value, error) {
	if v.Kind() != KindArray {
		return nil, &TypeError{Want: KindArray, Got: v.Kind()}
	}
	return v.arr, nil
}

// Member returns the named member of an object. It returns false when
// v is not an object or has no such member.
func (v *Value) Member(key string) (*Value, bool) {
	if v.Kind() != KindObject {
		return nil, false
	}
	return v.obj.Get(key)
}

// Each calls fn for every object member in document order and stops
// at the first error.
func (v *Value) Each(fn func(key string, member *Value) error) error {
	if v.Kind() != KindObject {
		return &TypeError{Want: KindObject, Got: v.Kind()}
	}
	for pair := v.obj.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of array elements or object members.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	}
	return 0
}

// Raw returns the source text of an array or object.
func (v *Value) Raw() string {
	return string(v.raw)
}
