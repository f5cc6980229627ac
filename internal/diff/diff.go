// Package diff compares JSON-like values and reports field-level changes.
package diff

import (
	"sort"
	"strconv"

	"cachelab/internal/model"
)

type ChangeType string

const (
	Added    ChangeType = "added"
	Removed  ChangeType = "removed"
	Modified ChangeType = "modified"
)

// Change is one field-level difference. Path is dotted; array elements use
// their index as a segment (items.0.name). OldValue is only set for Modified.
type Change struct {
	Path     string     `json:"path"`
	Type     ChangeType `json:"type"`
	Value    any        `json:"value"`
	OldValue any        `json:"old_value,omitempty"`
}

// Compute returns every difference between original and modified. Objects are
// compared over the union of their keys in sorted order and arrays index by
// index, so the result is deterministic for a given pair of inputs. Two
// values that are not both containers produce a single Modified change; at
// the top level its path is empty.
func Compute(original, modified any) []Change {
	var out []Change
	walk(&out, "", original, modified)
	return out
}

func walk(out *[]Change, path string, a, b any) {
	if am, ok := model.AsMap(a); ok {
		if bm, ok := model.AsMap(b); ok {
			walkMaps(out, path, am, bm)
			return
		}
	}
	if as, ok := model.AsSlice(a); ok {
		if bs, ok := model.AsSlice(b); ok {
			walkSlices(out, path, as, bs)
			return
		}
	}
	if !model.EqualValues(a, b) {
		*out = append(*out, Change{Path: path, Type: Modified, Value: b, OldValue: a})
	}
}

func walkMaps(out *[]Change, path string, a, b map[string]any) {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		child := join(path, k)
		av, inA := a[k]
		bv, inB := b[k]
		switch {
		case !inA:
			*out = append(*out, Change{Path: child, Type: Added, Value: bv})
		case !inB:
			*out = append(*out, Change{Path: child, Type: Removed, Value: av})
		default:
			walk(out, child, av, bv)
		}
	}
}

func walkSlices(out *[]Change, path string, a, b []any) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		child := join(path, strconv.Itoa(i))
		switch {
		case i >= len(a):
			*out = append(*out, Change{Path: child, Type: Added, Value: b[i]})
		case i >= len(b):
			*out = append(*out, Change{Path: child, Type: Removed, Value: a[i]})
		default:
			walk(out, child, a[i], b[i])
		}
	}
}

func join(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + "." + seg
}

// Summary counts changes by type.
type Summary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

func Summarize(changes []Change) Summary {
	var s Summary
	for _, c := range changes {
		switch c.Type {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Modified:
			s.Modified++
		}
	}
	return s
}

func (s Summary) Total() int { return s.Added + s.Removed + s.Modified }
