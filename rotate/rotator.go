package rotate

import (
	"io"
	"os"
	"time"
)

var _ io.WriteCloser = (Rotator)(nil)

// Rotator is an io.WriteCloser that rolls its file over on its own and on
// demand. Implementations are safe for concurrent use and every Write call is
// applied to a single file as a whole.
type Rotator interface {
	// Write appends p, rotating first when a trigger fires.
	Write(p []byte) (n int, err error)

	// Close releases the file. Later calls to Write or Rotate return ErrClosed.
	Close() error

	// Rotate rolls the active file over immediately.
	Rotate() error
}

// Option customises a rotator.
type Option func(*options)

type options struct {
	onError func(error)
	now     func() time.Time
	perm    os.FileMode
}

// WithOnError receives rotation failures that happen during Write. The
// callback must not write to the same rotator.
func WithOnError(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// WithClock replaces time.Now, mostly for tests of the time trigger.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithFileMode sets the permission bits used when creating log files.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		o.perm = mode
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:  time.Now,
		perm: 0o644,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// New returns the rotator selected by cfg.Engine.
func New(path string, cfg Config, opts ...Option) (Rotator, error) {
	if cfg.Engine == EngineLumberjack {
		return NewLumberjack(path, cfg, opts...)
	}
	return NewManager(path, cfg, opts...)
}
