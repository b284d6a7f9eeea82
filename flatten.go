package ctxlog

import "time"

// flatten builds the record of root's subtree in one depth-first pass.
// Children already emitted contribute their frozen record; the others are
// snapshotted as they are now. Iterative so deep chains cannot exhaust the
// stack.
func flatten(root *Node, now time.Time, debug bool) *Record {
	type item struct {
		node *Node
		dst  **Record
	}

	var out *Record
	stack := []item{{root, &out}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := it.node
		if n != root && n.emitted && n.record != nil {
			*it.dst = n.record
			continue
		}

		rec := snapshot(n, debug)
		if n == root {
			rec.Time = now
		}
		*it.dst = rec

		if len(n.children) == 0 {
			continue
		}
		rec.Children = make([]*Record, len(n.children))
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, item{n.children[i], &rec.Children[i]})
		}
	}
	return out
}

func snapshot(n *Node, debug bool) *Record {
	fields := fieldMap{}
	fields.set(n.fields.list...)
	if debug {
		fields.set(n.debugFields.list...)
	}
	if n.marked && n.level >= LevelError {
		fields.set(n.errorFields.list...)
	}

	rec := &Record{
		ID:        newRecordID(),
		Name:      n.name,
		StartTime: n.start,
		Fields:    fields.snapshot(),
		Error:     n.err.clone(),
	}
	if n.marked {
		rec.Level = n.level
		rec.Message = n.message
	}
	return rec
}
