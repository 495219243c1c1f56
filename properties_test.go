package geojoin

import (
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb/geojson"
)

func TestProps_RoundTrip(t *testing.T) {
	columns := []Column{
		{Name: "name", Type: flattypes.ColumnTypeString, Nullable: true},
		{Name: "count", Type: flattypes.ColumnTypeLong, Nullable: true},
		{Name: "ratio", Type: flattypes.ColumnTypeDouble, Nullable: true},
		{Name: "active", Type: flattypes.ColumnTypeBool, Nullable: true},
	}
	props := geojson.Properties{
		"name":   "Alpha",
		"count":  int64(42),
		"ratio":  0.5,
		"active": true,
	}

	got := decodeProps(encodeProps(props, columns), columns)

	if got["name"] != "Alpha" {
		t.Errorf("name: got %#v", got["name"])
	}
	if got["count"] != int64(42) {
		t.Errorf("count: got %#v", got["count"])
	}
	if got["ratio"] != 0.5 {
		t.Errorf("ratio: got %#v", got["ratio"])
	}
	if got["active"] != true {
		t.Errorf("active: got %#v", got["active"])
	}
}

func TestProps_EncodeSkipsNilAndAbsent(t *testing.T) {
	columns := stringColumns("a", "b", "c")
	props := geojson.Properties{"a": "x", "b": nil}

	got := decodeProps(encodeProps(props, columns), columns)
	if got["a"] != "x" {
		t.Errorf("a: got %#v", got["a"])
	}
	if _, ok := got["b"]; ok {
		t.Error("nil value should not be encoded")
	}
	if _, ok := got["c"]; ok {
		t.Error("absent value should not be encoded")
	}
}

func TestProps_EmptyString(t *testing.T) {
	columns := stringColumns("a")
	got := decodeProps(encodeProps(geojson.Properties{"a": ""}, columns), columns)
	if v, ok := got["a"]; !ok || v != "" {
		t.Errorf("empty string should round-trip, got %#v (present=%v)", v, ok)
	}
}

func TestProps_DecodeStopsOnBadColumnIndex(t *testing.T) {
	columns := stringColumns("a")
	// Column index 7 is out of range; nothing decodable follows.
	got := decodeProps([]byte{7, 0, 'x', 0}, columns)
	if len(got) != 0 {
		t.Errorf("expected no properties, got %v", got)
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{float64(42), "42"},
		{2.5, "2.5"},
		{int64(7), "7"},
		{int32(7), "7"},
		{true, "true"},
	}
	for _, c := range cases {
		if got := valueString(c.in); got != c.want {
			t.Errorf("valueString(%#v): expected %q, got %q", c.in, c.want, got)
		}
	}
}
