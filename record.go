package ctxlog

import (
	"time"

	"github.com/google/uuid"
)

// Record is the immutable snapshot a node produces when it is emitted. The
// children of a record are the snapshots of the node's subtree, in creation
// order.
type Record struct {
	ID        uuid.UUID
	Name      string
	Message   string
	Level     Level
	Time      time.Time // zero for children that were never emitted
	StartTime time.Time
	Fields    []Field
	Error     *ErrorInfo
	Children  []*Record
}

// Get returns the value of key, looking only at the record's own fields.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	for i := len(r.Fields) - 1; i >= 0; i-- {
		if r.Fields[i].Key == key {
			return r.Fields[i].Value, true
		}
	}
	return nil, false
}

// Walk calls fn for r and every descendant in depth-first pre-order, with
// depth 0 for r. Returning false from fn skips that record's children.
func (r *Record) Walk(fn func(rec *Record, depth int) bool) {
	if r == nil {
		return
	}
	type item struct {
		rec   *Record
		depth int
	}
	stack := []item{{r, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.rec, it.depth) {
			continue
		}
		for i := len(it.rec.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{it.rec.Children[i], it.depth + 1})
		}
	}
}

// Emitted reports whether the record was produced by an emission, as opposed
// to a snapshot of a child that never was.
func (r *Record) Emitted() bool {
	return r != nil && !r.Time.IsZero()
}

func newRecordID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
