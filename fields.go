package geojoin

import (
	"fmt"
	"strconv"
)

// FieldPair is one resolved correspondence from a source field name to
// the destination field its merged values land in.
type FieldPair struct {
	Source string
	Dest   string
}

// FieldMapping is the collision-free mapping from source field names to
// destination field names, built once per join. Pair order follows the
// order the source fields were supplied in (or the source dataset's
// native field order).
type FieldMapping struct {
	pairs  []FieldPair
	byName map[string]string
}

// NewFieldMapping resolves destination names for the requested source
// fields (all of them when fields is nil) and creates each resolved
// field, string-typed, on the output dataset. A source field whose name
// is already taken on the output gets "new"+N instead; the counter is
// shared across the whole build, so generated names never repeat even
// when several source fields collide.
func NewFieldMapping(out *Dataset, source *Dataset, fields []string) (*FieldMapping, error) {
	if fields == nil {
		fields = source.FieldNames()
	}

	m := &FieldMapping{byName: make(map[string]string, len(fields))}
	counter := 0
	for _, f := range fields {
		if !source.HasField(f) {
			return nil, fmt.Errorf("%w: %s not in source %s", ErrUnknownField, f, source.Name())
		}
		candidate := f
		for out.HasField(candidate) {
			counter++
			candidate = "new" + strconv.Itoa(counter)
		}
		if err := out.CreateField(candidate); err != nil {
			return nil, err
		}
		m.pairs = append(m.pairs, FieldPair{Source: f, Dest: candidate})
		m.byName[f] = candidate
	}
	return m, nil
}

// Pairs returns the mapping in build order.
func (m *FieldMapping) Pairs() []FieldPair { return m.pairs }

// Len returns the number of mapped fields.
func (m *FieldMapping) Len() int { return len(m.pairs) }

// DestFor returns the destination field for a source field.
func (m *FieldMapping) DestFor(source string) (string, bool) {
	dest, ok := m.byName[source]
	return dest, ok
}
