package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"cachelab/internal/model"
)

var (
	ErrInvalidPath = errors.New("invalid field path")
	ErrNotMapping  = errors.New("cannot descend into non-object value")
)

// setPath assigns value at a dotted path inside body and returns the updated
// body. body must already be a private copy; it is modified in place.
func setPath(body any, path string, value any) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
	}

	var root map[string]any
	if body == nil {
		root = map[string]any{}
	} else {
		m, ok := model.AsMap(body)
		if !ok {
			return nil, fmt.Errorf("%w: body is %s", ErrNotMapping, kindOf(body))
		}
		root = m
	}

	node := root
	for i, seg := range segs[:len(segs)-1] {
		child, exists := node[seg]
		if !exists {
			next := map[string]any{}
			node[seg] = next
			node = next
			continue
		}
		m, ok := model.AsMap(child)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %s", ErrNotMapping, strings.Join(segs[:i+1], "."), kindOf(child))
		}
		node = m
	}
	node[segs[len(segs)-1]] = model.CloneValue(value)
	return root, nil
}

func kindOf(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := model.AsSlice(v); ok {
		return "an array"
	}
	if _, ok := v.(json.Number); ok {
		return "a number"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	}
	return fmt.Sprintf("a %T", v)
}
