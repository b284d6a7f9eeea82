package rotate

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPath is returned when no file path was given.
	ErrEmptyPath = errors.New("rotate: path is required")

	// ErrInvalidConfig wraps validation failures of a Config.
	ErrInvalidConfig = errors.New("rotate: invalid config")

	// ErrInvalidTime is returned for a rotation time that is not HH:MM.
	ErrInvalidTime = errors.New("rotate: invalid rotation time")

	// ErrInvalidSize is returned for a size that cannot be parsed.
	ErrInvalidSize = errors.New("rotate: invalid size")

	// ErrUnsupported is returned when an engine cannot honour a setting.
	ErrUnsupported = errors.New("rotate: unsupported by engine")

	// ErrClosed is returned by Write and Rotate after Close.
	ErrClosed = errors.New("rotate: rotator is closed")
)

// Error describes one failed step of a rotation. Op is one of "close",
// "rename", "compress", "reopen", "prune" or "discover".
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rotate: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
