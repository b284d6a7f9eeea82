package ctxlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/czechbol/ctxlog/rotate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newFileDispatcher(t *testing.T, opts FileOptions, dopts ...Option) (*Dispatcher, *FileHandler) {
	t.Helper()
	h, err := NewFileHandler(opts)
	require.NoError(t, err)
	d := NewDispatcher(append([]Option{WithLevel(LevelDebug), WithHandlers(h)}, dopts...)...)
	t.Cleanup(func() { _ = d.Close() })
	return d, h
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestFileHandler_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.log")
	d, h := newFileDispatcher(t, DefaultFileOptions(path))
	assert.Equal(t, path, h.Path())

	log := d.Logger("api")
	_, err := log.Ctx(String("route", "/users")).Info("served")
	require.NoError(t, err)
	_, err = log.Exc(errDiskFull).Error("failed")
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "/users", first["route"])
	assert.Equal(t, "served", first["message"])
	assert.Equal(t, "error", second["level"])
	assert.Contains(t, second, "exception")
}

func TestFileHandler_HumanReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	opts := DefaultFileOptions(path)
	opts.Serialize = false
	opts.TimeFormat = "15:04:05"
	d, _ := newFileDispatcher(t, opts, WithClock(fixedClock(testEpoch, 0)))

	_, err := d.Logger("api").Ctx(Int("n", 1)).Warning("slow")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "12:00:00 [WARNING] api: slow n=1\n", string(data))
}

func TestFileHandler_SizeRotationKeepsTwo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	opts := DefaultFileOptions(path)
	opts.Rotation = &rotate.Config{SizeBytes: 1000, Keep: 2}
	d, h := newFileDispatcher(t, opts)

	m, ok := h.Rotator().(*rotate.Manager)
	require.True(t, ok)

	log := d.Logger("load")
	pad := strings.Repeat("x", 200)
	for i := 0; m.Sequence() < 3; i++ {
		require.Less(t, i, 100, "rotation never happened")
		_, err := log.Ctx(Int("i", i), String("pad", pad)).Info("tick")
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"app.log", "app.log.000002", "app.log.000003"}, names)
	assert.NoFileExists(t, path+".000001")

	for _, name := range names[1:] {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.LessOrEqual(t, info.Size(), int64(1000))
	}
	// the record that triggered the last rotation opened the fresh file
	assert.Len(t, readLines(t, path), 1)
}

func TestFileHandler_ConcurrentRecordsStayWhole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	opts := DefaultFileOptions(path)
	opts.Rotation = &rotate.Config{SizeBytes: 8 * 1024, Keep: 1000}
	d, _ := newFileDispatcher(t, opts)

	const workers, perWorker = 16, 50
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			log := d.Logger(fmt.Sprintf("worker-%d", w))
			for i := 0; i < perWorker; i++ {
				marker := fmt.Sprintf("m-%02d-%03d", w, i)
				if _, err := log.Ctx(String("marker", marker), String("pad", strings.Repeat(marker, 8))).Info(marker); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NoError(t, d.Close())

	files, err := filepath.Glob(path + "*")
	require.NoError(t, err)
	require.Greater(t, len(files), 1, "the test should cross several rotations")

	seen := make(map[string]bool)
	for _, f := range files {
		for _, line := range readLines(t, f) {
			var entry map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &entry), "torn line: %q", line)
			marker := entry["marker"].(string)
			assert.Equal(t, marker, entry["message"])
			assert.Equal(t, strings.Repeat(marker, 8), entry["pad"])
			assert.False(t, seen[marker], "duplicate %s", marker)
			seen[marker] = true
		}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestFileHandler_RotationErrorReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	// a directory where the compressor wants its temp file
	require.NoError(t, os.MkdirAll(path+".000001.gz.tmp", 0o755))

	var mu sync.Mutex
	var reported []error
	opts := DefaultFileOptions(path)
	opts.Rotation = &rotate.Config{SizeBytes: 100, Keep: 3, Compression: rotate.CompressionGzip}
	d, _ := newFileDispatcher(t, opts, WithErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	}))

	log := d.Logger("svc")
	pad := strings.Repeat("y", 80)
	for i := 0; i < 3; i++ {
		_, err := log.Ctx(String("pad", pad)).Info("x")
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, reported)
	var re *RotationError
	require.ErrorAs(t, reported[0], &re)
	assert.Equal(t, "compress", re.Op)

	assert.FileExists(t, path+".000001", "uncompressed backup must survive")
	assert.NotEmpty(t, readLines(t, path))
	assert.Zero(t, d.Failures())
}

func TestFileHandler_LumberjackEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lj.log")
	opts := DefaultFileOptions(path)
	opts.Rotation = &rotate.Config{Size: "1MB", Keep: 2, Engine: rotate.EngineLumberjack}
	d, h := newFileDispatcher(t, opts)

	_, err := d.Logger("svc").Info("via lumberjack")
	require.NoError(t, err)
	require.NoError(t, h.Rotator().Rotate())
	_, err = d.Logger("svc").Info("after rotate")
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "after rotate")
}

func TestFileHandler_Errors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := NewFileHandler(FileOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), errMsgEmptyPath)
	})

	t.Run("invalid rotation", func(t *testing.T) {
		opts := DefaultFileOptions(filepath.Join(t.TempDir(), "a.log"))
		opts.Rotation = &rotate.Config{Time: "25:00"}
		_, err := NewFileHandler(opts)
		require.Error(t, err)
		chain, _, _, _ := buildErrorChain(err)
		assert.Contains(t, joinChain(chain), rotate.ErrInvalidConfig.Error())
	})

	t.Run("write after close", func(t *testing.T) {
		h, err := NewFileHandler(DefaultFileOptions(filepath.Join(t.TempDir(), "a.log")))
		require.NoError(t, err)
		require.NoError(t, h.Close())
		require.NoError(t, h.Close())
		err = h.Write(&Record{Name: "x", Level: LevelInfo})
		assert.ErrorIs(t, err, ErrHandlerClosed)
	})

	t.Run("permissions", func(t *testing.T) {
		opts := DefaultFileOptions(filepath.Join(t.TempDir(), "a.log"))
		opts.Perm = 0o600
		h, err := NewFileHandler(opts)
		require.NoError(t, err)
		defer h.Close()
		info, err := os.Stat(opts.Path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})
}
