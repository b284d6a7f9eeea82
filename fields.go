package ctxlog

import (
	"slices"
	"sort"
	"time"
)

// Field is one key/value pair of a record.
type Field struct {
	Key   string
	Value any
}

// Fields is an unordered convenience form; its keys are merged in sorted
// order so output stays deterministic.
type Fields map[string]any

func String(key, val string) Field                 { return Field{Key: key, Value: val} }
func Int(key string, val int) Field                { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field            { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field        { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field              { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }
func Time(key string, val time.Time) Field         { return Field{Key: key, Value: val} }
func Any(key string, val any) Field                { return Field{Key: key, Value: val} }

func (f Fields) sorted() []Field {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, Field{Key: k, Value: f[k]})
	}
	return out
}

// fieldMap keeps first-insertion order; a repeated key overwrites in place.
type fieldMap struct {
	list  []Field
	index map[string]int
}

func (m *fieldMap) set(fields ...Field) {
	for _, f := range fields {
		if i, ok := m.index[f.Key]; ok {
			m.list[i].Value = f.Value
			continue
		}
		if m.index == nil {
			m.index = make(map[string]int)
		}
		m.index[f.Key] = len(m.list)
		m.list = append(m.list, f)
	}
}

func (m *fieldMap) clone() fieldMap {
	if len(m.list) == 0 {
		return fieldMap{}
	}
	index := make(map[string]int, len(m.index))
	for k, v := range m.index {
		index[k] = v
	}
	return fieldMap{list: slices.Clone(m.list), index: index}
}

// snapshot returns the fields as a fresh slice.
func (m *fieldMap) snapshot() []Field {
	return slices.Clone(m.list)
}
