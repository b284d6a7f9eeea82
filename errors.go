package ctxlog

import (
	"errors"
	"fmt"

	"github.com/czechbol/ctxlog/rotate"
)

var (
	ErrAlreadyEmitted    = errors.New("ctxlog: node already emitted")
	ErrAlreadyAttached   = errors.New("ctxlog: node already has a parent")
	ErrCycle             = errors.New("ctxlog: attaching would create a cycle")
	ErrHandlerClosed     = errors.New("ctxlog: handler closed")
	ErrDispatcherClosed  = errors.New("ctxlog: dispatcher closed")
	ErrAlreadyConfigured = errors.New("ctxlog: global dispatcher already configured")
	ErrInvalidLevel      = errors.New("ctxlog: invalid level")
	ErrUnknownFormat     = errors.New("ctxlog: unknown config format")
)

// UsageError reports API misuse: emitting twice, attaching a node that
// already has a parent, writing to a closed handler.
type UsageError struct {
	Op  string
	Err error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UsageError) Unwrap() error { return e.Err }

// WriteError reports an I/O failure of one handler. The dispatcher isolates
// it from the other handlers and from the caller.
type WriteError struct {
	Handler string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ctxlog: %s handler write: %v", e.Handler, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// RotationError is a failed step of a file rotation.
type RotationError = rotate.Error

func usageErr(op string, err error) error {
	return &UsageError{Op: op, Err: err}
}
