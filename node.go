package ctxlog

import (
	"strings"
	"time"
	"weak"
)

// Node accumulates context for one unit of work. Child nodes branch off with
// New, inherit a copy of the parent's fields and are folded into the parent's
// record when the parent is emitted.
//
// A node is meant to be owned by one goroutine and is not safe for
// concurrent use. Once emitted it is frozen: field writes are ignored and a
// second emission fails with ErrAlreadyEmitted.
type Node struct {
	name        string
	fields      fieldMap
	debugFields fieldMap
	errorFields fieldMap
	err         *ErrorInfo
	children    []*Node
	parent      weak.Pointer[Node]
	start       time.Time

	level   Level
	message string
	marked  bool

	emitted bool
	record  *Record
	d       *Dispatcher
}

func newNode(name string, d *Dispatcher) *Node {
	return &Node{name: name, d: d, start: d.now()}
}

// Name returns the event name.
func (n *Node) Name() string { return n.name }

// Frozen reports whether the node has been emitted.
func (n *Node) Frozen() bool { return n.emitted }

// Record returns the record produced by the emission, or nil.
func (n *Node) Record() *Record { return n.record }

// Children returns the direct children in creation order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Parent returns the parent node, or nil for a root or when the parent is
// no longer referenced.
func (n *Node) Parent() *Node { return n.parent.Value() }

// Path joins the names from the root down to n with "/".
func (n *Node) Path() string {
	var names []string
	for cur := n; cur != nil; cur = cur.parent.Value() {
		names = append(names, cur.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// New spawns a child named name. The child starts with a copy of n's fields
// as they are now; later writes on either side do not leak to the other.
// Children spawned from a frozen node are detached.
func (n *Node) New(name string) *Node {
	child := newNode(name, n.d)
	child.fields = n.fields.clone()
	child.debugFields = n.debugFields.clone()
	child.errorFields = n.errorFields.clone()
	if n.emitted {
		return child
	}
	child.parent = weak.Make(n)
	n.children = append(n.children, child)
	return child
}

// Attach adopts a detached root as the last child of n.
func (n *Node) Attach(child *Node) error {
	const op = "ctxlog: attach"
	if child == nil {
		return nil
	}
	if child.parent.Value() != nil {
		return usageErr(op, ErrAlreadyAttached)
	}
	for cur := n; cur != nil; cur = cur.parent.Value() {
		if cur == child {
			return usageErr(op, ErrCycle)
		}
	}
	if n.emitted {
		return usageErr(op, ErrAlreadyEmitted)
	}
	child.parent = weak.Make(n)
	if child.d == nil {
		child.d = n.d
	}
	n.children = append(n.children, child)
	return nil
}

// Ctx merges fields into the node. A repeated key replaces the earlier value.
func (n *Node) Ctx(fields ...Field) *Node {
	if !n.emitted {
		n.fields.set(fields...)
	}
	return n
}

// CtxMap merges m in sorted key order.
func (n *Node) CtxMap(m Fields) *Node {
	return n.Ctx(m.sorted()...)
}

func (n *Node) Str(key, val string) *Node               { return n.Ctx(String(key, val)) }
func (n *Node) Int(key string, val int) *Node           { return n.Ctx(Int(key, val)) }
func (n *Node) Int64(key string, val int64) *Node       { return n.Ctx(Int64(key, val)) }
func (n *Node) Float64(key string, val float64) *Node   { return n.Ctx(Float64(key, val)) }
func (n *Node) Bool(key string, val bool) *Node         { return n.Ctx(Bool(key, val)) }
func (n *Node) Dur(key string, val time.Duration) *Node { return n.Ctx(Duration(key, val)) }
func (n *Node) Time(key string, val time.Time) *Node    { return n.Ctx(Time(key, val)) }
func (n *Node) Any(key string, val any) *Node           { return n.Ctx(Any(key, val)) }

// DebugCtx adds fields that only show when the dispatcher runs in debug mode.
func (n *Node) DebugCtx(fields ...Field) *Node {
	if !n.emitted {
		n.debugFields.set(fields...)
	}
	return n
}

// ErrorCtx adds fields that only show when the node ends at error level or
// above.
func (n *Node) ErrorCtx(fields ...Field) *Node {
	if !n.emitted {
		n.errorFields.set(fields...)
	}
	return n
}

// Exc snapshots err onto the node, replacing an earlier one. A nil err
// clears it.
func (n *Node) Exc(err error) *Node {
	return n.exc(err, 1)
}

func (n *Node) exc(err error, skip int) *Node {
	if n.emitted {
		return n
	}
	n.err = newErrorInfo(err, skip+1)
	return n
}

// Mark records the outcome of the node without emitting it. A marked child
// shows its level and message inside the parent's record.
func (n *Node) Mark(level Level, msg string) *Node {
	if !n.emitted {
		n.level, n.message, n.marked = level, msg, true
	}
	return n
}

func (n *Node) Debug(msg string) (*Record, error)    { return n.emit(LevelDebug, msg) }
func (n *Node) Info(msg string) (*Record, error)     { return n.emit(LevelInfo, msg) }
func (n *Node) Warning(msg string) (*Record, error)  { return n.emit(LevelWarning, msg) }
func (n *Node) Error(msg string) (*Record, error)    { return n.emit(LevelError, msg) }
func (n *Node) Critical(msg string) (*Record, error) { return n.emit(LevelCritical, msg) }

// Log emits at an arbitrary level.
func (n *Node) Log(level Level, msg string) (*Record, error) {
	return n.emit(level, msg)
}

func (n *Node) emit(level Level, msg string) (*Record, error) {
	if n.emitted {
		return nil, usageErr("ctxlog: emit "+n.name, ErrAlreadyEmitted)
	}
	n.level, n.message, n.marked = level, msg, true
	n.emitted = true

	rec := flatten(n, n.d.now(), n.d.debugEnabled())
	n.record = rec

	if n.d != nil {
		if err := n.d.Emit(rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
