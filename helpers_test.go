package ctxlog

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// memHandler keeps every record it is given.
type memHandler struct {
	mu         sync.Mutex
	level      Level
	records    []*Record
	calls      int
	closeCalls int
	err        error
}

func (h *memHandler) Level() Level { return h.level }

func (h *memHandler) Write(rec *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, rec)
	return nil
}

func (h *memHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeCalls++
	return nil
}

func (h *memHandler) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func (h *memHandler) Records() []*Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Record(nil), h.records...)
}

// panicHandler panics on every write.
type panicHandler struct{}

func (panicHandler) Level() Level        { return LevelNotSet }
func (panicHandler) Write(*Record) error { panic("boom") }
func (panicHandler) Close() error        { return nil }

// blockingHandler parks Write until release is closed.
type blockingHandler struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingHandler() *blockingHandler {
	return &blockingHandler{entered: make(chan struct{}), release: make(chan struct{})}
}

func (h *blockingHandler) Level() Level { return LevelNotSet }

func (h *blockingHandler) Write(*Record) error {
	h.once.Do(func() { close(h.entered) })
	<-h.release
	return nil
}

func (h *blockingHandler) Close() error { return nil }

var errDiskFull = errors.New("disk full")

// threadSafeBuffer is a bytes.Buffer guarded by a mutex.
type threadSafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *threadSafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *threadSafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fixedClock returns a clock that advances by step on every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDispatcher(opts ...Option) (*Dispatcher, *memHandler) {
	mem := &memHandler{}
	all := append([]Option{
		WithLevel(LevelDebug),
		WithHandlers(mem),
		WithClock(fixedClock(testEpoch, time.Millisecond)),
	}, opts...)
	return NewDispatcher(all...), mem
}

func fieldMapOf(rec *Record) map[string]any {
	out := make(map[string]any, len(rec.Fields))
	for _, f := range rec.Fields {
		out[f.Key] = f.Value
	}
	return out
}

func keysOf(rec *Record) []string {
	out := make([]string, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		out = append(out, f.Key)
	}
	return out
}
