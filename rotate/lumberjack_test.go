package rotate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLumberjack(t *testing.T) {
	t.Run("writes and rotates", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "lj.log")

		r, err := NewLumberjack(path, Config{Size: "1MiB", Keep: 2})
		require.NoError(t, err)

		_, err = r.Write([]byte("hello\n"))
		require.NoError(t, err)
		require.NoError(t, r.Rotate())
		_, err = r.Write([]byte("world\n"))
		require.NoError(t, err)
		require.NoError(t, r.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "world\n", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		backups := 0
		for _, e := range entries {
			if e.Name() != "lj.log" && strings.HasPrefix(e.Name(), "lj-") {
				backups++
			}
		}
		assert.Equal(t, 1, backups)
	})

	t.Run("rejects unsupported settings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lj.log")

		_, err := NewLumberjack(path, Config{Size: "1MB", Time: "00:00", Keep: 1})
		assert.ErrorIs(t, err, ErrUnsupported)

		_, err = NewLumberjack(path, Config{Keep: 1})
		assert.ErrorIs(t, err, ErrUnsupported)

		// keep 0 would become MaxBackups 0, which lumberjack reads as unlimited
		_, err = NewLumberjack(path, Config{Size: "1MB", MaxAgeDays: 30})
		assert.ErrorIs(t, err, ErrUnsupported)

		_, err = NewLumberjack("", Config{Size: "1MB", Keep: 1})
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("closed", func(t *testing.T) {
		r, err := NewLumberjack(filepath.Join(t.TempDir(), "lj.log"), Config{Size: "1MB", Keep: 1})
		require.NoError(t, err)
		require.NoError(t, r.Close())

		assert.ErrorIs(t, r.Close(), ErrClosed)
		_, err = r.Write([]byte("x"))
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, r.Rotate(), ErrClosed)
	})
}
