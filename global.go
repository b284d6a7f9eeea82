package ctxlog

import (
	"sync"

	"go.uber.org/atomic"
)

var (
	global      atomic.Pointer[Dispatcher]
	defaultOnce sync.Once
)

// Configure installs d as the process-wide dispatcher. It must run before
// the first Default or GetLogger call: once a dispatcher is in place, from
// an earlier Configure or created by Default, it returns
// ErrAlreadyConfigured and the installed dispatcher stays.
func Configure(d *Dispatcher) error {
	if d == nil {
		return usageErr("ctxlog: configure", errNilDispatcher)
	}
	if !global.CompareAndSwap(nil, d) {
		return usageErr("ctxlog: configure", ErrAlreadyConfigured)
	}
	return nil
}

// Default returns the process-wide dispatcher. Without Configure it is a
// dispatcher at LevelInfo writing the human form to stdout.
func Default() *Dispatcher {
	if d := global.Load(); d != nil {
		return d
	}
	defaultOnce.Do(func() {
		d := NewDispatcher(WithHandlers(NewConsoleHandler(ConsoleOptions{})))
		if !global.CompareAndSwap(nil, d) {
			// lost to a concurrent Configure
			_ = d.Close()
		}
	})
	return global.Load()
}

// GetLogger returns a logger bound to the process-wide dispatcher.
func GetLogger(name string) *Logger {
	return Default().Logger(name)
}

// resetGlobal drops the process-wide dispatcher. Tests only.
func resetGlobal() {
	global.Store(nil)
	defaultOnce = sync.Once{}
}
