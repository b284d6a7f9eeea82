package ctxlog

import "time"

// Logger is a named entry point. Every node it creates is a root whose event
// name is the logger's name.
type Logger struct {
	name string
	d    *Dispatcher
}

func (l *Logger) Name() string { return l.name }

// Dispatcher returns the dispatcher the logger emits to.
func (l *Logger) Dispatcher() *Dispatcher { return l.d }

// New starts an empty root node.
func (l *Logger) New() *Node {
	return newNode(l.name, l.d)
}

// Ctx starts a root node carrying fields.
func (l *Logger) Ctx(fields ...Field) *Node {
	return l.New().Ctx(fields...)
}

// CtxMap starts a root node carrying m.
func (l *Logger) CtxMap(m Fields) *Node {
	return l.New().CtxMap(m)
}

// Typed shorthands for Ctx, each starting a new root node.
func (l *Logger) Str(key, val string) *Node               { return l.New().Str(key, val) }
func (l *Logger) Int(key string, val int) *Node           { return l.New().Int(key, val) }
func (l *Logger) Int64(key string, val int64) *Node       { return l.New().Int64(key, val) }
func (l *Logger) Float64(key string, val float64) *Node   { return l.New().Float64(key, val) }
func (l *Logger) Bool(key string, val bool) *Node         { return l.New().Bool(key, val) }
func (l *Logger) Dur(key string, val time.Duration) *Node { return l.New().Dur(key, val) }
func (l *Logger) Time(key string, val time.Time) *Node    { return l.New().Time(key, val) }
func (l *Logger) Any(key string, val any) *Node           { return l.New().Any(key, val) }

func (l *Logger) DebugCtx(fields ...Field) *Node {
	return l.New().DebugCtx(fields...)
}

func (l *Logger) ErrorCtx(fields ...Field) *Node {
	return l.New().ErrorCtx(fields...)
}

// Exc starts a root node carrying a snapshot of err.
func (l *Logger) Exc(err error) *Node {
	return l.New().exc(err, 1)
}

func (l *Logger) Debug(msg string) (*Record, error)    { return l.New().emit(LevelDebug, msg) }
func (l *Logger) Info(msg string) (*Record, error)     { return l.New().emit(LevelInfo, msg) }
func (l *Logger) Warning(msg string) (*Record, error)  { return l.New().emit(LevelWarning, msg) }
func (l *Logger) Error(msg string) (*Record, error)    { return l.New().emit(LevelError, msg) }
func (l *Logger) Critical(msg string) (*Record, error) { return l.New().emit(LevelCritical, msg) }
