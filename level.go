package ctxlog

import (
	"fmt"
	"strings"
)

// Level is the severity of a record. Levels are totally ordered by their
// numeric rank.
type Level int8

const (
	// LevelNotSet makes a handler fall back to the dispatcher threshold.
	LevelNotSet   Level = 0
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarning  Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

// String returns the lower case level name, or "" for LevelNotSet.
func (l Level) String() string {
	switch l {
	case LevelNotSet:
		return ""
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("level(%d)", int8(l))
	}
}

// Enabled reports whether a record at l passes threshold.
func (l Level) Enabled(threshold Level) bool {
	return l >= threshold
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses debug, info, warning (or warn), error and critical,
// ignoring case and surrounding space.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return LevelNotSet, fmt.Errorf("%w: %q (valid: debug, info, warning, error, critical)", ErrInvalidLevel, s)
	}
}
