package ctxlog

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/atomic"
)

// ColorMode decides whether the human form is colored.
type ColorMode string

const (
	// ColorAuto colors streams that are terminals.
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Stream selects the console output.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	// StreamSplit sends warnings and above to stderr, the rest to stdout.
	StreamSplit Stream = "split"
)

// ConsoleOptions configure a ConsoleHandler. Stdout and Stderr default to
// the process streams.
type ConsoleOptions struct {
	HandlerOptions
	Color  ColorMode
	Stream Stream
	Stdout io.Writer
	Stderr io.Writer
}

// ConsoleHandler writes records to stdout and/or stderr.
type ConsoleHandler struct {
	mu     sync.Mutex
	level  Level
	human  bool
	split  bool
	out    consoleTarget
	errOut consoleTarget
	closed atomic.Bool
}

type consoleTarget struct {
	w   io.Writer
	fmt Formatter
}

var _ Handler = (*ConsoleHandler)(nil)

// NewConsoleHandler returns a handler writing the human form by default.
func NewConsoleHandler(opts ConsoleOptions) *ConsoleHandler {
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	h := &ConsoleHandler{
		level: opts.Level,
		human: !opts.Serialize,
	}
	switch opts.Stream {
	case StreamStderr:
		stdout = stderr
	case StreamSplit:
		h.split = true
	}
	h.out = newConsoleTarget(stdout, opts)
	h.errOut = newConsoleTarget(stderr, opts)
	return h
}

func newConsoleTarget(w io.Writer, opts ConsoleOptions) consoleTarget {
	color := false
	if !opts.Serialize {
		switch opts.Color {
		case ColorAlways:
			color = true
		case ColorNever:
			color = false
		default:
			color = isTerminal(w)
		}
	}
	if f, ok := w.(*os.File); ok && color {
		w = colorable.NewColorable(f)
	}
	return consoleTarget{
		w:   w,
		fmt: Formatter{TimeFormat: opts.TimeFormat, Color: color},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (h *ConsoleHandler) Level() Level { return h.level }

func (h *ConsoleHandler) Write(rec *Record) error {
	if h.closed.Load() {
		return usageErr("ctxlog: console write", ErrHandlerClosed)
	}
	target := h.out
	if h.split && rec.Level >= LevelWarning {
		target = h.errOut
	}
	data, err := target.fmt.Serialize(rec, h.human)
	if err != nil {
		return &WriteError{Handler: "console", Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := target.w.Write(data); err != nil {
		return &WriteError{Handler: "console", Err: err}
	}
	return nil
}

// Close marks the handler closed. The process streams stay open.
func (h *ConsoleHandler) Close() error {
	h.closed.Store(true)
	return nil
}
