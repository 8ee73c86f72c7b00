package sim

import (
	"encoding/json"
	"fmt"
)

// Value is a sealed interface over the field value types the catalog allows.
// Only Number, Bool, and String implement it. Keeping the set closed means
// delta comparison is plain ==, with no reflection and no float-vs-int drift.
type Value interface {
	value()
}

// Number represents a numeric field value. Always float64 on the wire.
type Number float64

func (Number) value() {}

// Bool represents a boolean field value.
type Bool bool

func (Bool) value() {}

// String represents a string field value.
type String string

func (String) value() {}

// Fields maps field name → value for one printer object.
type Fields map[string]Value

// Status maps object name → fields, the shape carried by query results and
// notify_status_update params.
type Status map[string]Fields

// DecodeValue converts a decoded JSON/YAML scalar into a Value.
// Integers arrive as int or int64 from the YAML decoder and as float64 from
// encoding/json; all numeric shapes collapse to Number.
func DecodeValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case float64:
		return Number(v), nil
	case float32:
		return Number(v), nil
	case int:
		return Number(v), nil
	case int64:
		return Number(v), nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("non-numeric json.Number %q", v.String())
		}
		return Number(f), nil
	default:
		return nil, fmt.Errorf("unsupported field value type %T", raw)
	}
}

// Copy returns a deep copy of the fields map. Values are immutable scalars,
// so copying the map is enough.
func (f Fields) Copy() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Copy returns a deep copy of the status map.
func (s Status) Copy() Status {
	out := make(Status, len(s))
	for name, fields := range s {
		out[name] = fields.Copy()
	}
	return out
}
