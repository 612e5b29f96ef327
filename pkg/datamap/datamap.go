// Package datamap manipulates the arbitrarily nested configuration objects
// (map[string]any trees, as produced by encoding/json, BSON or TOML decoding)
// that component instances carry.
//
// Every function here treats its inputs as immutable and returns fresh
// values: callers can hand results to concurrent readers without a torn
// update ever being observable.
package datamap

import (
	"reflect"
	"strconv"
	"strings"
)

// Clone returns a deep copy of m. Nested maps and slices are copied; scalar
// values are shared. A nil map clones to nil.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// Equal reports whether a and b hold the same nested values. A nil map
// equals an empty one.
func Equal(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// CloneValue deep-copies maps and slices inside v.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	}
	return v
}

// Merge deep-merges layers left to right: later layers override earlier ones
// key by key. Nested maps merge recursively; any other value (including
// slices) replaces the earlier value wholesale. Nil layers are skipped. The
// result never aliases an input.
func Merge(layers ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]any)
		dv, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			merged := Clone(dv)
			mergeInto(merged, sv)
			dst[k] = merged
			continue
		}
		dst[k] = CloneValue(v)
	}
}

// Get looks up a dot-separated path. Numeric segments index into slices.
func Get(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set returns a copy of m with value stored at the dot-separated path.
// Missing intermediate objects are created; an intermediate scalar is
// replaced by an object. A numeric segment addressing an existing slice
// indexes into it, growing the slice with nils when needed. m itself is
// never modified.
func Set(m map[string]any, path string, value any) map[string]any {
	segs := strings.Split(path, ".")
	root := Clone(m)
	if root == nil {
		root = map[string]any{}
	}
	out, _ := setAt(root, segs, CloneValue(value)).(map[string]any)
	return out
}

func setAt(node any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	seg := segs[0]

	if list, ok := node.([]any); ok {
		if i, err := strconv.Atoi(seg); err == nil && i >= 0 {
			for len(list) <= i {
				list = append(list, nil)
			}
			list[i] = setAt(list[i], segs[1:], value)
			return list
		}
	}

	obj, ok := node.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	obj[seg] = setAt(obj[seg], segs[1:], value)
	return obj
}

// Delete returns a copy of m without the value at path. Missing paths are
// not an error.
func Delete(m map[string]any, path string) map[string]any {
	out := Clone(m)
	segs := strings.Split(path, ".")
	cur := out
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return out
		}
		cur = next
	}
	delete(cur, segs[len(segs)-1])
	return out
}
