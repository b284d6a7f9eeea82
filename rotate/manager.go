package rotate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// State is the phase of a Manager. A Manager is ACTIVE except while a
// rotation runs under its lock.
type State int32

const (
	StateActive State = iota
	StateRotating
)

func (s State) String() string {
	if s == StateRotating {
		return "rotating"
	}
	return "active"
}

// Backup describes one rotated file.
type Backup struct {
	Path       string
	Seq        uint64
	Compressed bool
}

// seqWidth zero-pads sequence numbers so backups sort by age.
const seqWidth = 6

// Manager is the builtin Rotator. It owns the active file descriptor and the
// rotation state; both are only touched with mu held.
type Manager struct {
	mu sync.Mutex

	path        string
	maxBytes    int64
	schedule    cron.Schedule
	keep        int
	compression Compression
	perm        os.FileMode
	now         func() time.Time
	onError     func(error)

	file      *os.File
	size      int64
	createdAt time.Time
	next      time.Time
	seq       uint64
	kept      []Backup
	state     State
	closed    bool
}

var _ Rotator = (*Manager)(nil)

// NewManager opens (or creates) path for appending and resumes the backup
// sequence from files already present next to it.
func NewManager(path string, cfg Config, opts ...Option) (*Manager, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxBytes, err := cfg.MaxBytes()
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	m := &Manager{
		path:        filepath.Clean(path),
		maxBytes:    maxBytes,
		keep:        cfg.Keep,
		compression: cfg.Compression,
		perm:        o.perm,
		now:         o.now,
		onError:     o.onError,
	}

	if maxBytes == 0 && cfg.Time != "" {
		hour, minute, err := parseClock(cfg.Time)
		if err != nil {
			return nil, err
		}
		schedule, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", minute, hour))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTime, err)
		}
		m.schedule = schedule
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return nil, fmt.Errorf("rotate: create log directory: %w", err)
	}
	if err := m.discover(); err != nil {
		return nil, err
	}
	if err := m.open(false); err != nil {
		return nil, err
	}
	m.createdAt = m.now()
	m.next = m.nextBoundary(m.createdAt)
	return m, nil
}

// Write appends p to the active file, rotating first when a trigger fires.
// A failed rotation is reported through OnError and p is still written.
func (m *Manager) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if m.shouldRotate(len(p)) {
		if err := m.rotate(); err != nil {
			m.report(err)
		}
	}
	if m.file == nil {
		if err := m.open(false); err != nil {
			return 0, err
		}
	}

	n, err := m.file.Write(p)
	m.size += int64(n)
	return n, err
}

// ShouldRotate reports whether writing n more bytes would trigger a rotation.
func (m *Manager) ShouldRotate(n int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && m.shouldRotate(n)
}

// Rotate rolls the active file over now, regardless of triggers.
func (m *Manager) Rotate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	return m.rotate()
}

// Sync flushes the active file to disk.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	return m.file.Sync()
}

// Close closes the active file. The rotation state is dropped with it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true
	m.kept = nil
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

// Path returns the active file path.
func (m *Manager) Path() string { return m.path }

// Size returns the active file size in bytes.
func (m *Manager) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Sequence returns the sequence number of the newest backup.
func (m *Manager) Sequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq
}

// State returns the current phase. Outside of Write and Rotate it is always
// StateActive.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CreatedAt returns when the active file was opened or last rotated.
func (m *Manager) CreatedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createdAt
}

// Backups returns the retained backups, oldest first.
func (m *Manager) Backups() []Backup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.kept)
}

func (m *Manager) shouldRotate(n int) bool {
	if m.maxBytes > 0 {
		// an empty file never rotates on size
		return m.size > 0 && m.size+int64(n) > m.maxBytes
	}
	if m.schedule != nil {
		return !m.now().Before(m.next)
	}
	return false
}

func (m *Manager) nextBoundary(from time.Time) time.Time {
	if m.schedule == nil {
		return time.Time{}
	}
	return m.schedule.Next(from)
}

// rotate runs close, rename, compress, reopen and prune. Step failures are
// collected; the active file is reopened whatever happened before.
func (m *Manager) rotate() error {
	m.state = StateRotating
	defer func() { m.state = StateActive }()

	var errs []error

	if m.file != nil {
		if err := m.file.Close(); err != nil {
			errs = append(errs, &Error{Op: "close", Path: m.path, Err: err})
		}
		m.file = nil
	}

	seq := m.seq + 1
	backup := backupPath(m.path, seq)
	renamed := true
	if err := os.Rename(m.path, backup); err != nil {
		renamed = false
		if !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &Error{Op: "rename", Path: m.path, Err: err})
		}
	}

	if renamed {
		m.seq = seq
		if m.keep == 0 {
			if err := os.Remove(backup); err != nil {
				errs = append(errs, &Error{Op: "prune", Path: backup, Err: err})
			}
		} else {
			b := Backup{Path: backup, Seq: seq}
			if m.compression.enabled() {
				compressed, err := compressFile(backup, m.compression)
				if compressed != "" {
					b.Path = compressed
					b.Compressed = true
				}
				if err != nil {
					errs = append(errs, &Error{Op: "compress", Path: backup, Err: err})
				}
			}
			m.kept = append(m.kept, b)
		}
	}

	// Truncate only when the old content was moved away.
	if err := m.open(renamed); err != nil {
		errs = append(errs, &Error{Op: "reopen", Path: m.path, Err: err})
	}

	errs = append(errs, m.prune()...)

	m.createdAt = m.now()
	m.next = m.nextBoundary(m.createdAt)
	return errors.Join(errs...)
}

// prune deletes the oldest backups until the retention bound holds. A backup
// that cannot be removed is still dropped from the list.
func (m *Manager) prune() []error {
	var errs []error
	for len(m.kept) > m.keep {
		oldest := m.kept[0]
		m.kept = m.kept[1:]
		if err := os.Remove(oldest.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &Error{Op: "prune", Path: oldest.Path, Err: err})
		}
	}
	return errs
}

func (m *Manager) open(truncate bool) error {
	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flag |= os.O_TRUNC
	}
	f, err := os.OpenFile(m.path, flag, m.perm)
	if err != nil {
		return fmt.Errorf("rotate: open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("rotate: stat log file: %w", err)
	}
	m.file = f
	m.size = info.Size()
	return nil
}

// discover picks up backups left by a previous process so the sequence keeps
// increasing and retention spans restarts.
func (m *Manager) discover() error {
	dir, base := filepath.Split(m.path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &Error{Op: "discover", Path: dir, Err: err}
	}

	re := regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `\.(\d+)(\.gz|\.zip)?$`)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := re.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		seq, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		m.kept = append(m.kept, Backup{
			Path:       filepath.Join(dir, e.Name()),
			Seq:        seq,
			Compressed: match[2] != "",
		})
	}

	slices.SortFunc(m.kept, func(a, b Backup) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})
	if n := len(m.kept); n > 0 {
		m.seq = m.kept[n-1].Seq
	}
	if errs := m.prune(); len(errs) > 0 {
		m.report(errors.Join(errs...))
	}
	return nil
}

// report hands err to OnError. A panicking callback must not break the
// write path.
func (m *Manager) report(err error) {
	if err == nil || m.onError == nil {
		return
	}
	defer func() { _ = recover() }()
	m.onError(err)
}

func backupPath(path string, seq uint64) string {
	return fmt.Sprintf("%s.%0*d", path, seqWidth, seq)
}
