package ctxlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// DefaultShutdownTimeout bounds how long Close waits for in-flight emits.
const DefaultShutdownTimeout = 5 * time.Second

// Dispatcher fans records out to its handlers. It is safe for concurrent
// use; Emit is synchronous and returns once every eligible handler was
// called.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler

	level   atomic.Int32
	debug   atomic.Bool
	onError func(error)
	diag    zerolog.Logger
	clock   func() time.Time

	shutdownTimeout time.Duration

	// in-flight emits, tracked so Close can wait for them
	wg        sync.WaitGroup
	activeOps atomic.Int64
	failures  atomic.Int64

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLevel sets the threshold used by handlers without their own.
func WithLevel(l Level) Option {
	return func(d *Dispatcher) { d.level.Store(int32(l)) }
}

// WithDebug includes fields added with DebugCtx.
func WithDebug(enabled bool) Option {
	return func(d *Dispatcher) { d.debug.Store(enabled) }
}

func WithHandlers(hs ...Handler) Option {
	return func(d *Dispatcher) {
		for _, h := range hs {
			if h != nil {
				d.handlers = append(d.handlers, h)
			}
		}
	}
}

// WithErrorHandler receives handler write failures, handler panics and
// rotation failures instead of the diagnostics logger.
func WithErrorHandler(fn func(error)) Option {
	return func(d *Dispatcher) { d.onError = fn }
}

// WithDiagnostics redirects the dispatcher's own log, stderr by default.
func WithDiagnostics(w io.Writer) Option {
	return func(d *Dispatcher) { d.diag = newDiagnostics(w) }
}

// WithClock replaces time.Now for node start and emission times.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.clock = now }
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.shutdownTimeout = timeout }
}

// NewDispatcher returns a dispatcher at LevelInfo without handlers unless
// options say otherwise.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		diag:            newDiagnostics(os.Stderr),
		clock:           time.Now,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	d.level.Store(int32(LevelInfo))
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	for _, h := range d.handlers {
		d.installReporter(h)
	}
	return d
}

func newDiagnostics(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, NoColor: !isTerminal(w), TimeFormat: time.RFC3339}
	return zerolog.New(cw).With().Timestamp().Str("component", "ctxlog").Logger()
}

// Register appends h to the handlers. Handlers are called in registration
// order.
func (d *Dispatcher) Register(h Handler) error {
	if h == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed.Load() {
		return usageErr("ctxlog: register", ErrDispatcherClosed)
	}
	d.installReporter(h)
	// copy on write so in-flight emits keep their snapshot
	d.handlers = append(slices.Clip(d.handlers), h)
	return nil
}

func (d *Dispatcher) installReporter(h Handler) {
	if r, ok := h.(errorReporter); ok {
		r.setErrorReporter(d.report)
	}
}

// Handlers returns the registered handlers in order.
func (d *Dispatcher) Handlers() []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.handlers)
}

func (d *Dispatcher) Level() Level { return Level(d.level.Load()) }

func (d *Dispatcher) SetLevel(l Level) { d.level.Store(int32(l)) }

func (d *Dispatcher) Debug() bool { return d.debug.Load() }

func (d *Dispatcher) SetDebug(enabled bool) { d.debug.Store(enabled) }

// Failures counts handler writes that failed or panicked.
func (d *Dispatcher) Failures() int64 { return d.failures.Load() }

// Logger returns a named entry point bound to d.
func (d *Dispatcher) Logger(name string) *Logger {
	return &Logger{name: name, d: d}
}

// Emit hands rec to every handler whose threshold it meets. Handler I/O
// failures and panics are reported and counted but not returned; usage
// errors are joined and returned after all handlers were tried.
func (d *Dispatcher) Emit(rec *Record) error {
	if rec == nil {
		return nil
	}
	if d.closed.Load() {
		return usageErr("ctxlog: emit", ErrDispatcherClosed)
	}

	d.mu.RLock()
	// Double-check after acquiring lock
	if d.closed.Load() {
		d.mu.RUnlock()
		return usageErr("ctxlog: emit", ErrDispatcherClosed)
	}
	d.activeOps.Add(1)
	d.wg.Add(1)
	handlers := d.handlers
	d.mu.RUnlock()

	defer func() {
		d.activeOps.Add(-1)
		d.wg.Done()
	}()

	base := d.Level()
	var usage []error
	for _, h := range handlers {
		threshold := h.Level()
		if threshold == LevelNotSet {
			threshold = base
		}
		if !rec.Level.Enabled(threshold) {
			continue
		}
		err := d.write(h, rec)
		if err == nil {
			continue
		}
		var ue *UsageError
		if errors.As(err, &ue) {
			usage = append(usage, err)
			continue
		}
		d.failures.Add(1)
		d.report(err)
	}
	return errors.Join(usage...)
}

func (d *Dispatcher) write(h Handler, rec *Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &WriteError{Handler: fmt.Sprintf("%T", h), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return h.Write(rec)
}

func (d *Dispatcher) report(err error) {
	if err == nil {
		return
	}
	if d.onError != nil {
		defer func() {
			if r := recover(); r != nil {
				d.diag.Error().Interface("panic", r).Msg("Error handler panicked")
			}
		}()
		d.onError(err)
		return
	}
	d.diag.Error().Err(err).Msg("Log handler failure")
}

// Close rejects further emits, waits for in-flight ones up to the shutdown
// timeout and closes every handler. Later calls return the first result.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed.Store(true)
		handlers := d.handlers
		d.mu.Unlock()

		d.waitForEmits()

		var errs []error
		for _, h := range handlers {
			if err := h.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		d.closeErr = errors.Join(errs...)
	})
	return d.closeErr
}

func (d *Dispatcher) waitForEmits() {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	timeout := d.shutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		d.diag.Warn().
			Int64("active_operations", d.activeOps.Load()).
			Dur("timeout", timeout).
			Msg("Dispatcher shutdown timeout exceeded")
	}
}

// Closed reports whether Close was called.
func (d *Dispatcher) Closed() bool { return d.closed.Load() }

func (d *Dispatcher) now() time.Time {
	if d == nil || d.clock == nil {
		return time.Now()
	}
	return d.clock()
}

func (d *Dispatcher) debugEnabled() bool {
	return d != nil && d.debug.Load()
}
