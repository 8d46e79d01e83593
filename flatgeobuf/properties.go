package flatgeobuf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"

	topojson "github.com/tingold/orb-topojson"
)

// columnType maps a schema field type onto the FlatGeobuf column type
// used to store it.
func columnType(t topojson.FieldType) flattypes.ColumnType {
	switch t {
	case topojson.FieldInteger:
		return flattypes.ColumnTypeLong
	case topojson.FieldFloat:
		return flattypes.ColumnTypeDouble
	case topojson.FieldBoolean:
		return flattypes.ColumnTypeBool
	default:
		return flattypes.ColumnTypeString
	}
}

// fieldType maps a FlatGeobuf column type back onto a schema field type.
// Types without a schema counterpart are read as strings.
func fieldType(t flattypes.ColumnType) topojson.FieldType {
	switch t {
	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte,
		flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort,
		flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt,
		flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		return topojson.FieldInteger
	case flattypes.ColumnTypeFloat, flattypes.ColumnTypeDouble:
		return topojson.FieldFloat
	case flattypes.ColumnTypeBool:
		return topojson.FieldBoolean
	default:
		return topojson.FieldString
	}
}

// layout is the column schema of an exported store.
type layout struct {
	names []string
	types []flattypes.ColumnType
}

func newLayout(schema *topojson.Schema) *layout {
	l := &layout{names: schema.Fields()}
	for _, t := range schema.FieldTypes() {
		l.types = append(l.types, columnType(t))
	}
	return l
}

func (l *layout) columns(builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(l.names))
	for i, name := range l.names {
		col := writer.NewColumn(builder)
		col.SetName(name)
		col.SetTitle(name) // The JS client matches on title
		col.SetType(l.types[i])
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

// encodeProperties encodes props in column order as
// [uint16 column index][value] pairs. Null and missing values are omitted.
func (l *layout) encodeProperties(props geojson.Properties) []byte {
	if len(props) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, name := range l.names {
		value, ok := props[name]
		if !ok || value == nil {
			continue
		}
		buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(i)))
		writeValue(&buf, value, l.types[i])
	}
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, value any, t flattypes.ColumnType) {
	switch t {
	case flattypes.ColumnTypeBool:
		b, _ := value.(bool)
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case flattypes.ColumnTypeLong:
		buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(toInt64(value))))
	case flattypes.ColumnTypeDouble:
		buf.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(toFloat64(value))))
	default:
		s := toString(value)
		buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(s))))
		buf.WriteString(s)
	}
}

// decodeProperties decodes the property buffer of one feature. Values are
// normalized to the types a decoded TopoJSON store holds: int64, float64,
// bool and string.
func decodeProperties(data []byte, header *flattypes.Header) (geojson.Properties, error) {
	props := make(geojson.Properties)
	offset := 0

	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated column index at %d", ErrInvalidData, offset)
		}
		idx := int(binary.LittleEndian.Uint16(data[offset:]))
		offset += 2

		var col flattypes.Column
		if idx >= header.ColumnsLength() || !header.Columns(&col, idx) {
			return nil, fmt.Errorf("%w: column %d out of range", ErrInvalidData, idx)
		}

		value, n, err := readValue(data[offset:], col.Type())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name(), err)
		}
		offset += n
		props[string(col.Name())] = value
	}

	return props, nil
}

// readValue reads one value and returns it with the number of bytes used.
func readValue(data []byte, t flattypes.ColumnType) (any, int, error) {
	need := func(n int) error {
		if len(data) < n {
			return fmt.Errorf("%w: need %d bytes, have %d", ErrInvalidData, n, len(data))
		}
		return nil
	}

	switch t {
	case flattypes.ColumnTypeBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return data[0] != 0, 1, nil
	case flattypes.ColumnTypeByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int64(int8(data[0])), 1, nil
	case flattypes.ColumnTypeUByte:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int64(data[0]), 1, nil
	case flattypes.ColumnTypeShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int64(int16(binary.LittleEndian.Uint16(data))), 2, nil
	case flattypes.ColumnTypeUShort:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int64(binary.LittleEndian.Uint16(data)), 2, nil
	case flattypes.ColumnTypeInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int64(int32(binary.LittleEndian.Uint32(data))), 4, nil
	case flattypes.ColumnTypeUInt:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int64(binary.LittleEndian.Uint32(data)), 4, nil
	case flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(binary.LittleEndian.Uint64(data)), 8, nil
	case flattypes.ColumnTypeFloat:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 4, nil
	case flattypes.ColumnTypeDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8, nil
	case flattypes.ColumnTypeString, flattypes.ColumnTypeJson,
		flattypes.ColumnTypeDateTime, flattypes.ColumnTypeBinary:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		n := int(binary.LittleEndian.Uint32(data))
		if err := need(4 + n); err != nil {
			return nil, 0, err
		}
		return string(data[4 : 4+n]), 4 + n, nil
	default:
		return nil, 0, fmt.Errorf("%w: unsupported column type %d", ErrInvalidData, t)
	}
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	}
	return 0
}

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	}
	return 0
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
		return fmt.Sprint(val)
	}
}
