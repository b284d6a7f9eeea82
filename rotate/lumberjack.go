package rotate

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/atomic"
	"gopkg.in/natefinch/lumberjack.v2"
)

const megabyte = 1024 * 1024

// lumberjackRotator delegates size rotation, gzip and age based pruning to
// lumberjack. Backups are timestamp-named by lumberjack, not sequence-named.
type lumberjackRotator struct {
	logger *lumberjack.Logger
	closed atomic.Bool
}

// NewLumberjack returns a size-only Rotator backed by lumberjack. cfg must
// carry a size trigger; Time and zip compression are rejected. The size is
// rounded up to whole megabytes. Options are accepted for symmetry with New;
// lumberjack manages file modes and errors itself.
func NewLumberjack(path string, cfg Config, _ ...Option) (Rotator, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	cfg.Engine = EngineLumberjack
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxBytes, err := cfg.MaxBytes()
	if err != nil {
		return nil, err
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("rotate: create log directory: %w", err)
	}

	return &lumberjackRotator{
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    int((maxBytes + megabyte - 1) / megabyte),
			MaxBackups: cfg.Keep,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compression == CompressionGzip,
			LocalTime:  true,
		},
	}, nil
}

func (r *lumberjackRotator) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	n, err := r.logger.Write(p)
	if err != nil && r.closed.Load() {
		// Close won the race against this write.
		return n, ErrClosed
	}
	return n, err
}

func (r *lumberjackRotator) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	return r.logger.Close()
}

func (r *lumberjackRotator) Rotate() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := r.logger.Rotate(); err != nil {
		if r.closed.Load() {
			return ErrClosed
		}
		return err
	}
	return nil
}
