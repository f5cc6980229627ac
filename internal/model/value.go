package model

import (
	"encoding/json"
	"reflect"
)

// CloneValue deep-copies a decoded JSON value. Maps and slices are copied
// recursively; Headers, map[string]string and []string are normalised to the
// shapes encoding/json produces so that later comparisons line up. Any other
// container (typed maps, slices, structs, pointers) is normalised through a
// JSON round trip.
func CloneValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = CloneValue(vv)
		}
		return out
	case Headers:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = CloneValue(vv)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = vv
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = CloneValue(vv)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = vv
		}
		return out
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(t, &decoded); err != nil {
			return string(t)
		}
		return decoded
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer, reflect.Interface:
		return normalize(v)
	default:
		return v
	}
}

func normalize(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// AsMap reports whether v is a JSON object and returns it.
func AsMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Headers:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

// AsSlice reports whether v is a JSON array and returns it.
func AsSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// EqualValues compares two JSON-like values structurally. Numbers compare by
// value regardless of their Go type, so an int set from code equals the
// float64 decoded from the wire.
func EqualValues(a, b any) bool {
	if am, ok := AsMap(a); ok {
		bm, ok := AsMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !EqualValues(av, bv) {
				return false
			}
		}
		return true
	}
	if as, ok := AsSlice(a); ok {
		bs, ok := AsSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !EqualValues(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	if _, ok := AsMap(b); ok {
		return false
	}
	if _, ok := AsSlice(b); ok {
		return false
	}

	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case nil, bool, string:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// EqualHeaders compares header maps; a nil map equals an empty one.
func EqualHeaders(a, b Headers) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return EqualValues(a, b)
}
