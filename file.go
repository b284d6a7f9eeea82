package ctxlog

import (
	"os"
	"path/filepath"

	smerrors "github.com/Station-Manager/errors"
	"github.com/czechbol/ctxlog/rotate"
	"go.uber.org/atomic"
)

// FileOptions configure a FileHandler. A nil Rotation appends to Path
// forever.
type FileOptions struct {
	HandlerOptions
	Path     string
	Rotation *rotate.Config
	Perm     os.FileMode
}

// DefaultFileOptions returns JSON-line options for path without rotation.
func DefaultFileOptions(path string) FileOptions {
	return FileOptions{
		HandlerOptions: HandlerOptions{Serialize: true},
		Path:           path,
	}
}

// FileHandler appends records to a file through a rotate.Rotator. Each
// record is handed to the rotator in a single Write, so records from
// concurrent emitters never interleave.
type FileHandler struct {
	level   Level
	human   bool
	fmt     Formatter
	path    string
	w       rotate.Rotator
	onError atomic.Pointer[func(error)]
	closed  atomic.Bool
}

var _ Handler = (*FileHandler)(nil)

// NewFileHandler creates the parent directories of opts.Path and opens the
// file for appending.
func NewFileHandler(opts FileOptions) (*FileHandler, error) {
	const op smerrors.Op = "ctxlog.NewFileHandler"
	if opts.Path == "" {
		return nil, smerrors.New(op).Msg(errMsgEmptyPath)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, smerrors.New(op).Err(err).Msg(errMsgCreateDir)
	}

	cfg := rotate.DefaultConfig()
	if opts.Rotation != nil {
		cfg = *opts.Rotation
	}

	h := &FileHandler{
		level: opts.Level,
		human: !opts.Serialize,
		fmt:   Formatter{TimeFormat: opts.TimeFormat},
		path:  opts.Path,
	}
	rotOpts := []rotate.Option{rotate.WithOnError(h.reportRotation)}
	if opts.Perm != 0 {
		rotOpts = append(rotOpts, rotate.WithFileMode(opts.Perm))
	}
	w, err := rotate.New(opts.Path, cfg, rotOpts...)
	if err != nil {
		return nil, smerrors.New(op).Err(err).Msg(errMsgOpenFile)
	}
	h.w = w
	return h, nil
}

func (h *FileHandler) Level() Level { return h.level }

// Path returns the active file path.
func (h *FileHandler) Path() string { return h.path }

// Rotator exposes the underlying rotator, e.g. to force a rotation.
func (h *FileHandler) Rotator() rotate.Rotator { return h.w }

func (h *FileHandler) Write(rec *Record) error {
	if h.closed.Load() {
		return usageErr("ctxlog: file write", ErrHandlerClosed)
	}
	data, err := h.fmt.Serialize(rec, h.human)
	if err != nil {
		return &WriteError{Handler: "file " + h.path, Err: err}
	}
	if _, err := h.w.Write(data); err != nil {
		return &WriteError{Handler: "file " + h.path, Err: err}
	}
	return nil
}

// Close closes the file. Calling it again is a no-op.
func (h *FileHandler) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.w.Close()
}

func (h *FileHandler) setErrorReporter(fn func(error)) {
	h.onError.Store(&fn)
}

func (h *FileHandler) reportRotation(err error) {
	if fn := h.onError.Load(); fn != nil && *fn != nil {
		(*fn)(err)
	}
}
