package ctxlog

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/czechbol/ctxlog/rotate"
)

func BenchmarkStructuredLogging(b *testing.B) {
	l, _ := newFileLogger(b, LevelInfo)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = l.Ctx(
				String("user_id", "user-123"),
				Int("count", i),
				String("operation", "test"),
			).Info("Benchmark log")
			i++
		}
	})
}

func BenchmarkStructuredLoggingWithError(b *testing.B) {
	l, _ := newFileLogger(b, LevelInfo)

	err := fmt.Errorf("test error")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = l.Exc(err).
				Str("operation", "benchmark").
				Int("retry", i).
				Error("Error occurred")
			i++
		}
	})
}

func BenchmarkRequestTree(b *testing.B) {
	l, _ := newFileLogger(b, LevelInfo)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := l.Ctx(
			String("request_id", fmt.Sprintf("req-%d", i)),
			String("user_id", "user-123"),
		)
		req.New("auth").Str("action", "start").Mark(LevelInfo, "Request started")
		req.New("db").Int("rows", 3)
		_, _ = req.Info("Request finished")
	}
}

func BenchmarkRotatingFile(b *testing.B) {
	opts := DefaultFileOptions(filepath.Join(b.TempDir(), "rotating.log"))
	opts.Rotation = &rotate.Config{Size: "64KB", Keep: 2}
	h, err := NewFileHandler(opts)
	if err != nil {
		b.Fatal(err)
	}
	d := NewDispatcher(WithHandlers(h))
	b.Cleanup(func() { _ = d.Close() })
	l := d.Logger("bench")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = l.Ctx(Int("i", i)).Info("rotating")
	}
}

func BenchmarkHighConcurrency(b *testing.B) {
	l, _ := newFileLogger(b, LevelInfo)

	b.ResetTimer()
	b.SetParallelism(100) // 100 goroutines
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = l.Ctx(
				Int("goroutine_id", i),
				String("data", "benchmark"),
			).Info("High concurrency test")
			i++
		}
	})
}
