package ctxlog

import (
	"fmt"
	"reflect"
	"sort"
)

// Maximum recursion depth to prevent stack overflow
const maxExpandDepth = 10

// Limit the number of elements expanded for large slices/arrays and maps
const maxExpandElements = 10

// Expand flattens v into dotted fields under key: struct fields become
// key.Field, map entries key.<k> and slice elements key.<i>. Unexported
// struct fields are skipped, cycles are written as "<circular reference>"
// and anything below the depth limit as "<max depth reached>".
func (n *Node) Expand(key string, v any) *Node {
	if n.emitted {
		return n
	}
	visited := make(map[uintptr]bool)
	n.fields.set(expandValue(nil, key, v, visited, 0)...)
	return n
}

func expandValue(out []Field, prefix string, v any, visited map[uintptr]bool, depth int) []Field {
	if depth > maxExpandDepth {
		return append(out, String(prefix, "<max depth reached>"))
	}
	if v == nil {
		return append(out, Any(prefix, nil))
	}

	val := reflect.ValueOf(v)

	// Unwrap interfaces and pointers, with cycle detection.
	for val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return append(out, Any(prefix, nil))
		}
		if val.Kind() == reflect.Ptr {
			ptr := val.Pointer()
			if visited[ptr] {
				return append(out, String(prefix, "<circular reference>"))
			}
			visited[ptr] = true
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		if _, ok := val.Interface().(fmt.Stringer); ok || val.Type().PkgPath() == "time" {
			return append(out, Any(prefix, val.Interface()))
		}
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			fieldVal := val.Field(i)
			if !fieldVal.CanInterface() {
				continue
			}
			out = expandValue(out, prefix+"."+typ.Field(i).Name, fieldVal.Interface(), visited, depth+1)
		}
		return out

	case reflect.Map:
		keys := val.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for i, k := range keys {
			if i == maxExpandElements {
				return append(out, Int(prefix+".more", len(keys)-maxExpandElements))
			}
			mapPrefix := fmt.Sprintf("%s.%v", prefix, k.Interface())
			out = expandValue(out, mapPrefix, val.MapIndex(k).Interface(), visited, depth+1)
		}
		return out

	case reflect.Slice, reflect.Array:
		if val.Kind() == reflect.Slice && val.Type().Elem().Kind() == reflect.Uint8 {
			return append(out, Any(prefix, val.Interface()))
		}
		for i := 0; i < val.Len() && i < maxExpandElements; i++ {
			out = expandValue(out, fmt.Sprintf("%s.%d", prefix, i), val.Index(i).Interface(), visited, depth+1)
		}
		if val.Len() > maxExpandElements {
			out = append(out, Int(prefix+".more", val.Len()-maxExpandElements))
		}
		return out

	default:
		if val.IsValid() && val.CanInterface() {
			return append(out, Any(prefix, val.Interface()))
		}
		return append(out, Any(prefix, v))
	}
}
