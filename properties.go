package geojoin

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb/geojson"
)

// Attribute values travel in the FlatGeobuf property layout: a 2-byte
// little-endian column index followed by a value encoded per the
// column's declared type. Unlike type inference on write, the codec here
// is driven entirely by the dataset's column schema, so values round-trip
// against the schema they were declared with.

// encodeProps encodes the properties of one feature. Columns are walked
// in schema order, which keeps the byte layout deterministic; absent and
// nil values are simply omitted.
func encodeProps(props geojson.Properties, columns []Column) []byte {
	if len(props) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, col := range columns {
		value, ok := props[col.Name]
		if !ok || value == nil {
			continue
		}
		var idx [2]byte
		binary.LittleEndian.PutUint16(idx[:], uint16(i))
		buf.Write(idx[:])
		encodeValue(&buf, value, col.Type)
	}
	return buf.Bytes()
}

// encodeValue writes a single value in the column's declared type.
func encodeValue(buf *bytes.Buffer, value interface{}, colType flattypes.ColumnType) {
	switch colType {
	case flattypes.ColumnTypeBool:
		b := byte(0)
		if v, ok := value.(bool); ok && v {
			b = 1
		}
		buf.WriteByte(b)

	case flattypes.ColumnTypeByte, flattypes.ColumnTypeUByte:
		v, _ := toInt64(value)
		buf.WriteByte(byte(v))

	case flattypes.ColumnTypeShort, flattypes.ColumnTypeUShort:
		v, _ := toInt64(value)
		writeUint(buf, uint64(uint16(v)), 2)

	case flattypes.ColumnTypeInt, flattypes.ColumnTypeUInt:
		v, _ := toInt64(value)
		writeUint(buf, uint64(uint32(v)), 4)

	case flattypes.ColumnTypeLong, flattypes.ColumnTypeULong:
		v, _ := toInt64(value)
		writeUint(buf, uint64(v), 8)

	case flattypes.ColumnTypeFloat:
		v, _ := toFloat64(value)
		writeUint(buf, uint64(math.Float32bits(float32(v))), 4)

	case flattypes.ColumnTypeDouble:
		v, _ := toFloat64(value)
		writeUint(buf, math.Float64bits(v), 8)

	case flattypes.ColumnTypeJson:
		b, err := json.Marshal(value)
		if err != nil {
			b = []byte("null")
		}
		buf.Write(b)
		buf.WriteByte(0)

	case flattypes.ColumnTypeBinary:
		b, _ := value.([]byte)
		writeUint(buf, uint64(len(b)), 4)
		buf.Write(b)

	default: // String, DateTime and anything unrecognized as text
		buf.WriteString(valueString(value))
		buf.WriteByte(0)
	}
}

// decodeProps decodes a feature's property bytes against the schema.
// Decoding stops at the first malformed pair; everything read up to that
// point is kept.
func decodeProps(data []byte, columns []Column) geojson.Properties {
	props := geojson.Properties{}

	for off := 0; off+2 <= len(data); {
		idx := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if idx >= len(columns) {
			break
		}
		col := columns[idx]
		value, n := decodeValue(data[off:], col.Type)
		if n == 0 {
			break
		}
		off += n
		props[col.Name] = value
	}
	return props
}

// decodeValue reads one value of the given type, returning the value and
// the number of bytes consumed (0 on truncated input).
func decodeValue(data []byte, colType flattypes.ColumnType) (interface{}, int) {
	switch colType {
	case flattypes.ColumnTypeBool:
		if len(data) < 1 {
			return nil, 0
		}
		return data[0] != 0, 1

	case flattypes.ColumnTypeByte:
		if len(data) < 1 {
			return nil, 0
		}
		return int8(data[0]), 1

	case flattypes.ColumnTypeUByte:
		if len(data) < 1 {
			return nil, 0
		}
		return data[0], 1

	case flattypes.ColumnTypeShort:
		if len(data) < 2 {
			return nil, 0
		}
		return int16(binary.LittleEndian.Uint16(data)), 2

	case flattypes.ColumnTypeUShort:
		if len(data) < 2 {
			return nil, 0
		}
		return binary.LittleEndian.Uint16(data), 2

	case flattypes.ColumnTypeInt:
		if len(data) < 4 {
			return nil, 0
		}
		return int32(binary.LittleEndian.Uint32(data)), 4

	case flattypes.ColumnTypeUInt:
		if len(data) < 4 {
			return nil, 0
		}
		return binary.LittleEndian.Uint32(data), 4

	case flattypes.ColumnTypeLong:
		if len(data) < 8 {
			return nil, 0
		}
		return int64(binary.LittleEndian.Uint64(data)), 8

	case flattypes.ColumnTypeULong:
		if len(data) < 8 {
			return nil, 0
		}
		return binary.LittleEndian.Uint64(data), 8

	case flattypes.ColumnTypeFloat:
		if len(data) < 4 {
			return nil, 0
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), 4

	case flattypes.ColumnTypeDouble:
		if len(data) < 8 {
			return nil, 0
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8

	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		s, n := readCString(data)
		return s, n

	case flattypes.ColumnTypeJson:
		s, n := readCString(data)
		var v interface{}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return s, n
		}
		return v, n

	case flattypes.ColumnTypeBinary:
		if len(data) < 4 {
			return nil, 0
		}
		size := int(binary.LittleEndian.Uint32(data))
		if len(data) < 4+size {
			return nil, 0
		}
		return append([]byte(nil), data[4:4+size]...), 4 + size

	default:
		return nil, 0
	}
}

// readCString reads a null-terminated string, or the whole remainder
// when no terminator is present.
func readCString(data []byte) (string, int) {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return string(data[:i]), i + 1
	}
	return string(data), len(data)
}

func writeUint(buf *bytes.Buffer, v uint64, size int) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:size])
}

// toInt64 converts any numeric attribute value to int64.
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
	}
	return 0, false
}

// toFloat64 converts any numeric attribute value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	default:
		if i, ok := toInt64(v); ok {
			return float64(i), true
		}
	}
	return 0, false
}

// valueString renders an attribute value the way it is merged into join
// fields: strings verbatim, numbers in their shortest decimal form,
// everything else through fmt.
func valueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	default:
		if i, ok := toInt64(v); ok {
			return strconv.FormatInt(i, 10)
		}
		return fmt.Sprintf("%v", v)
	}
}
